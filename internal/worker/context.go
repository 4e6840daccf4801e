package worker

import "context"

type interactiveKey struct{}

// WithInteractive marks ctx as coming from an interactive caller (a UI or request thread) that
// must not block on long-running work.
func WithInteractive(ctx context.Context) context.Context {
	return context.WithValue(ctx, interactiveKey{}, true)
}

// IsInteractive reports whether ctx was marked by WithInteractive.
func IsInteractive(ctx context.Context) bool {
	v, _ := ctx.Value(interactiveKey{}).(bool)
	return v
}
