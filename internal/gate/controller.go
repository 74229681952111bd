package gate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gravitrone/corelayout/internal/logging"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(log *zerolog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log.With().Str("component", "gate").Logger()
			c.runner = NewRunner(log)
		}
	}
}

// WithWarner sets the sink for non-fatal concerns such as unrecognized
// resolver output.
func WithWarner(w logging.Warner) Option {
	return func(c *Controller) {
		c.warn = w
	}
}

// Controller owns the gate state machine:
//
//	pending -> ready   resolution succeeded
//	pending -> failed  resolution failed; entry unchanged
//	any     -> pending Begin with a new resolver
//
// It is not safe for concurrent use. Only Runner.Run may run elsewhere; its
// Outcome must be handed back through Apply on the owning goroutine.
type Controller struct {
	caps    Capabilities
	state   State
	seq     uint64
	settled bool

	runner Runner
	log    zerolog.Logger
	warn   logging.Warner
}

// NewController returns a pending controller with entry Home.
func NewController(caps Capabilities, opts ...Option) *Controller {
	c := &Controller{
		caps:   caps,
		state:  State{Status: Pending, Entry: Home},
		runner: NewRunner(nil),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return c.state
}

// Capabilities returns the flows the host supplied.
func (c *Controller) Capabilities() Capabilities {
	return c.caps
}

// Runner returns the runner used by Resolve.
func (c *Controller) Runner() Runner {
	return c.runner
}

// Begin starts a fresh resolution: the gate returns to pending with entry
// Home, and every earlier request becomes stale.
func (c *Controller) Begin(resolver Resolver) Request {
	c.seq++
	c.settled = false
	c.state = State{Status: Pending, Entry: Home}
	req := Request{Seq: c.seq, ID: uuid.NewString(), Resolver: resolver}
	c.log.Debug().Uint64("seq", req.Seq).Str("request", req.ID).Str("resolver", describe(resolver)).Msg("resolution requested")
	return req
}

// Apply settles the gate with out. It returns applied=false for stale or
// already-applied outcomes. When the gate becomes ready with a mode the host
// cannot render, the state is still recorded and a *CapabilityError is
// returned.
func (c *Controller) Apply(out Outcome) (applied bool, err error) {
	if out.Seq != c.seq || c.settled {
		c.log.Debug().Uint64("seq", out.Seq).Uint64("latest", c.seq).Str("request", out.ID).Msg("stale outcome dropped")
		return false, nil
	}
	c.settled = true

	if out.Err != nil {
		c.state = State{Status: Failed, Entry: c.state.Entry, Err: out.Err}
		c.log.Debug().Str("request", out.ID).Err(out.Err).Msg("gate failed")
		return true, nil
	}

	if !out.Recognized() && c.warn != nil {
		c.warn.Warn("gate.unrecognized-entry", fmt.Sprintf("entry resolver returned %q; treating it as %q", out.Raw, Home))
	}
	entry := Normalize(out.Entry)
	c.state = State{Status: Ready, Entry: entry}
	c.log.Debug().Str("request", out.ID).Str("entry", string(entry)).Msg("gate ready")
	return true, c.require("resolve", entry)
}

// Resolve runs a full resolution synchronously on the calling goroutine.
// Resolver failures end in the failed state and are not returned; only a
// *CapabilityError is.
func (c *Controller) Resolve(ctx context.Context, resolver Resolver) error {
	req := c.Begin(resolver)
	out := c.runner.Run(ctx, req)
	_, err := c.Apply(out)
	return err
}

// Close invalidates any in-flight request.
func (c *Controller) Close() {
	c.seq++
	c.settled = false
}

// GoHome switches to the home shell. It never fails.
func (c *Controller) GoHome() {
	c.state.Entry = Home
}

// Complete is the hand-back for onboarding and auth flows. Same as GoHome.
func (c *Controller) Complete() {
	c.GoHome()
}

// GoToOnboarding switches to onboarding if the host supplied that flow.
func (c *Controller) GoToOnboarding() error {
	if err := c.require("goToOnboarding", Onboarding); err != nil {
		return err
	}
	c.state.Entry = Onboarding
	return nil
}

// GoToAuth switches to auth if the host supplied that flow.
func (c *Controller) GoToAuth() error {
	if err := c.require("goToAuth", Auth); err != nil {
		return err
	}
	c.state.Entry = Auth
	return nil
}

func (c *Controller) require(op string, mode EntryMode) error {
	if c.caps.supports(mode) {
		return nil
	}
	return &CapabilityError{Op: op, Mode: mode}
}

func describe(r Resolver) string {
	if r == nil {
		return "<nil>"
	}
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}
