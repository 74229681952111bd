// Package layout validates the shell's page set and tracks which page is active.
package layout

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultMaxPages is the page limit used when no positive limit is given.
const DefaultMaxPages = 5

// Renderer builds the model for a page from its initial props.
type Renderer func(props map[string]any) tea.Model

// Icon is one of Glyph, Resource or ImageRef.
type Icon interface {
	iconKind() string
}

// Glyph is a textual icon, usually a single emoji or symbol.
type Glyph string

// Resource is an opaque numeric handle to a bundled image.
type Resource int

// ImageRef points at an image by location.
type ImageRef struct {
	URI string `yaml:"uri" json:"uri"`
}

func (Glyph) iconKind() string    { return "glyph" }
func (Resource) iconKind() string { return "resource" }
func (ImageRef) iconKind() string { return "image" }

// IconKind reports "glyph", "resource", "image" or "" for a nil icon.
func IconKind(icon Icon) string {
	if icon == nil {
		return ""
	}
	return icon.iconKind()
}

// Page describes one tab of the shell.
type Page struct {
	Key          string
	Title        string
	Icon         Icon
	Renderer     Renderer `hash:"ignore"`
	InitialProps map[string]any
}

// Render builds the page model. It returns nil when the page has no renderer.
func (p Page) Render() tea.Model {
	if p.Renderer == nil {
		return nil
	}
	return p.Renderer(p.InitialProps)
}

func (p Page) String() string {
	return fmt.Sprintf("%s (%s)", p.Key, p.Title)
}
