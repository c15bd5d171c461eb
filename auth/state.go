// Package auth handles passwords, access tokens and the identity carried by
// a request context.
package auth

import (
	"chatcode/errors"
	"context"
	"slices"
)

// State is the identity of the caller, resolved once per request or stream.
// It replaces any process-wide "logged in" flag.
type State struct {
	UserID string
	Roles  []string
}

func (s State) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

type stateKey struct{}

func WithState(ctx context.Context, state State) context.Context {
	return context.WithValue(ctx, stateKey{}, state)
}

// FromContext returns the caller identity, ErrUnauthenticated when absent.
func FromContext(ctx context.Context) (State, error) {
	state, ok := ctx.Value(stateKey{}).(State)
	if !ok || state.UserID == "" {
		return State{}, errors.ErrUnauthenticated
	}
	return state, nil
}
