package examclient

import "context"

type sourceContextKey struct{}

// WithSource labels ctx with the surface that triggered an operation, for
// example "cli" or "web". The label is copied into audit events.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceContextKey{}, source)
}

func sourceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	source, _ := ctx.Value(sourceContextKey{}).(string)
	return source
}
