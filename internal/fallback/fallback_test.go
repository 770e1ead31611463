package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstReturnsFirstSuccess(t *testing.T) {
	attempts := []Attempt[string]{
		{Name: "a", Run: func(ctx context.Context) (string, error) { return "", errors.New("nope") }},
		{Name: "b", Run: func(ctx context.Context) (string, error) { return "hit", nil }},
		{Name: "c", Run: func(ctx context.Context) (string, error) {
			t.Fatal("attempt after a success must not run")
			return "", nil
		}},
	}

	v, name, err := First(context.Background(), attempts)
	require.NoError(t, err)
	assert.Equal(t, "hit", v)
	assert.Equal(t, "b", name)
}

func TestFirstExhausted(t *testing.T) {
	attempts := []Attempt[int]{
		{Name: "a", Run: func(ctx context.Context) (int, error) { return 0, errors.New("x") }},
		{Name: "b", Run: func(ctx context.Context) (int, error) { return 0, errors.New("y") }},
	}

	_, _, err := First(context.Background(), attempts)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestFirstHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := []Attempt[int]{
		{Name: "a", Run: func(ctx context.Context) (int, error) {
			t.Fatal("attempt must not run with a cancelled context")
			return 0, nil
		}},
	}

	_, _, err := First(ctx, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}
