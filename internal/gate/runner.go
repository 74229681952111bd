package gate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Request is one resolution attempt. Seq is the generation token; only the
// latest Seq issued by a Controller can be applied.
type Request struct {
	Seq      uint64
	ID       string
	Resolver Resolver
}

// Outcome is the result of running a Request.
type Outcome struct {
	Seq uint64
	ID  string
	// Entry is the normalized mode. Empty when Err is set.
	Entry EntryMode
	// Raw is what the resolver returned before normalization.
	Raw     EntryMode
	Err     error
	Elapsed time.Duration
}

// Recognized reports whether the resolver returned one of the three modes
// verbatim. An empty result, such as an expression reading an undefined fact,
// is not recognized.
func (o Outcome) Recognized() bool {
	return Known(o.Raw)
}

// Runner executes resolution requests. It holds no gate state and may be
// used from any goroutine.
type Runner struct {
	log zerolog.Logger
}

// NewRunner returns a Runner that logs to log, or nowhere when log is nil.
func NewRunner(log *zerolog.Logger) Runner {
	if log == nil {
		return Runner{log: zerolog.Nop()}
	}
	return Runner{log: log.With().Str("component", "gate.runner").Logger()}
}

// Run calls the request's resolver once and normalizes its result. Errors and
// panics come back as a *ResolutionError in the Outcome. A nil resolver
// resolves to Home.
func (r Runner) Run(ctx context.Context, req Request) (out Outcome) {
	out = Outcome{Seq: req.Seq, ID: req.ID}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.Entry = ""
			out.Err = &ResolutionError{RequestID: req.ID, Err: panicError(p)}
		}
		out.Elapsed = time.Since(start)
		ev := r.log.Debug().Uint64("seq", out.Seq).Str("request", out.ID).Dur("elapsed", out.Elapsed)
		if out.Err != nil {
			ev.Err(out.Err).Msg("resolution failed")
			return
		}
		ev.Str("entry", string(out.Entry)).Str("raw", string(out.Raw)).Msg("resolution finished")
	}()

	if req.Resolver == nil {
		out.Raw = Home
		out.Entry = Home
		return out
	}
	raw, err := req.Resolver.Resolve(ctx)
	if err != nil {
		out.Err = &ResolutionError{RequestID: req.ID, Err: err}
		return out
	}
	out.Raw = raw
	out.Entry = Normalize(raw)
	return out
}
