package core

import "context"

// Origin identifies the client behind a mutation. It is copied onto every
// audit entry written with the context.
type Origin struct {
	IPAddress string
	UserAgent string
}

type originKey struct{}

// WithOrigin returns a copy of ctx carrying o.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the origin stored in ctx, or the zero Origin.
func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}
