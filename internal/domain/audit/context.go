package audit

import "context"

type actorKey struct{}

// Actor describes who triggered an operation, as seen at the request boundary
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// WithActor stores the actor in ctx
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored in ctx, or the zero Actor
func ActorFrom(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}

// Apply fills the request fields of r that are still empty
func (a Actor) Apply(r *Record) {
	if r.UserID == "" {
		r.UserID = a.UserID
	}
	if r.IPAddress == "" {
		r.IPAddress = a.IPAddress
	}
	if r.UserAgent == "" {
		r.UserAgent = a.UserAgent
	}
}
