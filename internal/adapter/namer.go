package adapter

import (
	"context"

	"github.com/gcsfiles/service/internal/naming"
)

// Namer produces the storage filename for rec. attempt starts at 0 and grows
// by one for every collision the provider reports.
type Namer interface {
	Generate(ctx context.Context, rec FileRecord, attempt int) (string, error)
}

// NamerFunc lets an ordinary function act as a Namer.
type NamerFunc func(ctx context.Context, rec FileRecord, attempt int) (string, error)

// Generate calls f.
func (f NamerFunc) Generate(ctx context.Context, rec FileRecord, attempt int) (string, error) {
	return f(ctx, rec, attempt)
}

// FromStrategy adapts a naming.Strategy, feeding it rec.SourceName().
func FromStrategy(s naming.Strategy) Namer {
	return NamerFunc(func(_ context.Context, rec FileRecord, attempt int) (string, error) {
		return s(rec.SourceName(), attempt)
	})
}

// FromCallback adapts a strategy that reports its result through a callback,
// possibly from another goroutine. The callback must be invoked once.
func FromCallback(fn func(rec FileRecord, attempt int, done func(name string, err error))) Namer {
	return NamerFunc(func(ctx context.Context, rec FileRecord, attempt int) (string, error) {
		type result struct {
			name string
			err  error
		}
		ch := make(chan result, 1)
		fn(rec, attempt, func(name string, err error) {
			select {
			case ch <- result{name, err}:
			default:
			}
		})

		select {
		case res := <-ch:
			return res.name, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}
