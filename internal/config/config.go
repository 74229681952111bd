package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gravitrone/corelayout/internal/gate"
	"github.com/gravitrone/corelayout/internal/layout"
)

// PathEnv overrides the config file location.
const PathEnv = "CORELAYOUT_CONFIG"

// Config holds CLI configuration stored at ~/.corelayout/config.
type Config struct {
	APIKey             string `yaml:"api_key,omitempty"`
	Username           string `yaml:"username,omitempty"`
	Theme              string `yaml:"theme,omitempty"`
	OnboardingComplete bool   `yaml:"onboarding_complete,omitempty"`
	Shell              Shell  `yaml:"shell,omitempty"`
	Entry              Entry  `yaml:"entry,omitempty"`
}

// Shell configures the tabbed home shell.
type Shell struct {
	MaxPages    int        `yaml:"max_pages,omitempty"`
	InitialPage string     `yaml:"initial_page,omitempty"`
	Pages       []PageSpec `yaml:"pages,omitempty"`
}

// PageSpec is one configured page. Renderer names a built-in page renderer.
type PageSpec struct {
	Key      string         `yaml:"key"`
	Title    string         `yaml:"title"`
	Icon     IconSpec       `yaml:"icon,omitempty"`
	Renderer string         `yaml:"renderer"`
	Props    map[string]any `yaml:"props,omitempty"`
}

// Entry configures entry resolution.
type Entry struct {
	// Expression is an expr-lang program over the config facts. Empty means
	// gate.DefaultExpression.
	Expression string        `yaml:"expression,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// Path returns the config file path.
func Path() string {
	if p := strings.TrimSpace(os.Getenv(PathEnv)); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".corelayout", "config")
}

// Load reads and parses the config file. Returns error if missing or insecure.
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile reads and parses the config at path.
func LoadFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config not found: %w", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		return nil, fmt.Errorf("config permissions too open: %04o (want 0600)", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault is Load with a missing file treated as an empty config.
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Save writes the config to disk with secure permissions.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config to path with secure permissions.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0600)
}

// EntryExpression returns the configured expression or the default one.
func (c *Config) EntryExpression() string {
	if expr := strings.TrimSpace(c.Entry.Expression); expr != "" {
		return expr
	}
	return gate.DefaultExpression
}

// Facts exposes the config to entry expressions as onboarded, token and
// username.
func (c *Config) Facts() gate.Facts {
	return gate.Facts{
		"onboarded": c.OnboardingComplete,
		"token":     c.APIKey,
		"username":  c.Username,
	}
}

// FactSource snapshots the config's facts.
func (c *Config) FactSource() gate.FactSource {
	facts := c.Facts()
	return func(context.Context) (gate.Facts, error) {
		return facts, nil
	}
}

// PageSpecs returns the configured pages, or DefaultPages when none are set.
func (s Shell) PageSpecs() []PageSpec {
	if len(s.Pages) == 0 {
		return DefaultPages()
	}
	return s.Pages
}

// LayoutPages converts the page specs to layout pages. Renderer names are
// resolved with lookup; unknown names yield a nil renderer, which the
// validator reports.
func (s Shell) LayoutPages(lookup func(name string) layout.Renderer) []layout.Page {
	specs := s.PageSpecs()
	pages := make([]layout.Page, 0, len(specs))
	for _, spec := range specs {
		var render layout.Renderer
		if lookup != nil {
			render = lookup(strings.TrimSpace(spec.Renderer))
		}
		pages = append(pages, layout.Page{
			Key:          spec.Key,
			Title:        spec.Title,
			Icon:         spec.Icon.Icon,
			Renderer:     render,
			InitialProps: spec.Props,
		})
	}
	return pages
}

// DefaultPages is the shell used when the config lists no pages.
func DefaultPages() []PageSpec {
	return []PageSpec{
		{
			Key:      "home",
			Title:    "Home",
			Icon:     IconSpec{Icon: layout.Glyph("⌂")},
			Renderer: "text",
			Props: map[string]any{
				"heading": "Welcome",
				"body":    "Edit ~/.corelayout/config to add your own pages.",
			},
		},
		{Key: "activity", Title: "Activity", Icon: IconSpec{Icon: layout.Glyph("◷")}, Renderer: "activity"},
		{Key: "settings", Title: "Settings", Icon: IconSpec{Icon: layout.Glyph("⚙")}, Renderer: "settings"},
	}
}

// IconSpec wraps a layout.Icon for YAML. A string decodes to a glyph, an
// integer to a resource handle, and a mapping with uri to an image reference.
type IconSpec struct {
	Icon layout.Icon
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *IconSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			s.Icon = nil
		case "!!int":
			var n int
			if err := node.Decode(&n); err != nil {
				return fmt.Errorf("icon: %w", err)
			}
			s.Icon = layout.Resource(n)
		case "!!str":
			s.Icon = layout.Glyph(node.Value)
		default:
			return fmt.Errorf("line %d: icon must be a string, an integer or {uri: ...}, got %s", node.Line, node.Tag)
		}
	case yaml.MappingNode:
		var ref layout.ImageRef
		if err := node.Decode(&ref); err != nil {
			return fmt.Errorf("icon: %w", err)
		}
		s.Icon = ref
	default:
		return fmt.Errorf("line %d: icon must be a string, an integer or {uri: ...}", node.Line)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s IconSpec) MarshalYAML() (any, error) {
	switch icon := s.Icon.(type) {
	case nil:
		return nil, nil
	case layout.Glyph:
		return string(icon), nil
	case layout.Resource:
		return int(icon), nil
	case layout.ImageRef:
		return icon, nil
	case *layout.ImageRef:
		return *icon, nil
	default:
		return nil, fmt.Errorf("unsupported icon %T", icon)
	}
}

// IsZero lets omitempty drop unset icons.
func (s IconSpec) IsZero() bool {
	return s.Icon == nil
}
