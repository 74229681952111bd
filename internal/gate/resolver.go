package gate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Resolver decides the entry mode. The result need not be normalized.
type Resolver interface {
	Resolve(ctx context.Context) (EntryMode, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (EntryMode, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context) (EntryMode, error) {
	return f(ctx)
}

type constResolver EntryMode

func (c constResolver) Resolve(context.Context) (EntryMode, error) {
	return EntryMode(c), nil
}

func (c constResolver) String() string {
	return "const(" + string(c) + ")"
}

// Const returns a resolver that always yields mode.
func Const(mode EntryMode) Resolver {
	return constResolver(mode)
}

// WithTimeout bounds r by d. A non-positive d returns r unchanged. The
// wrapped resolver keeps running after the deadline; only its result is
// dropped.
func WithTimeout(r Resolver, d time.Duration) Resolver {
	if d <= 0 || r == nil {
		return r
	}
	return ResolverFunc(func(ctx context.Context) (EntryMode, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type result struct {
			mode EntryMode
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			defer func() {
				if p := recover(); p != nil {
					ch <- result{err: panicError(p)}
				}
			}()
			mode, err := r.Resolve(ctx)
			ch <- result{mode: mode, err: err}
		}()

		select {
		case res := <-ch:
			return res.mode, res.err
		case <-ctx.Done():
			return "", fmt.Errorf("entry resolver timed out after %s: %w", d, ctx.Err())
		}
	})
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	if p == nil {
		return errors.New("unknown error")
	}
	return errors.New(fmt.Sprint(p))
}
