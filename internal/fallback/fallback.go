/*
Package fallback provides a small combinator for trying an ordered list of
strategies until one succeeds.
*/
package fallback

import (
	"context"
	"errors"
)

// ErrExhausted is returned when every attempt in the chain failed.
var ErrExhausted = errors.New("all attempts exhausted")

// Attempt is one strategy in an ordered chain.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// First runs the attempts in order and returns the first successful result
// along with the name of the attempt that produced it. Errors from earlier
// attempts are discarded; a cancelled context short-circuits the chain.
func First[T any](ctx context.Context, attempts []Attempt[T]) (T, string, error) {
	var zero T
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		v, err := a.Run(ctx)
		if err != nil {
			continue
		}
		return v, a.Name, nil
	}
	return zero, "", ErrExhausted
}
