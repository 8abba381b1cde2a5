package cmd

import (
	"context"
	"errors"
)

type contextKey string

const appKey contextKey = "app"

// withApp adds the command dependencies to the context
func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey, a)
}

// appFromContext retrieves the dependencies stored by the root command
func appFromContext(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, errors.New("command dependencies not initialized")
	}
	return a, nil
}
