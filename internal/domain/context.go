package domain

import "context"

type identityKey struct{}

// Identity carries the authenticated caller through request context. The
// tenant id comes exclusively from the authentication collaborator; it is
// never accepted from a report payload.
type Identity struct {
	UserID   string
	TenantID string
}

// Valid reports whether the identity carries a usable tenant scope.
func (id Identity) Valid() bool {
	return id.TenantID != ""
}

// WithIdentity stores an Identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the Identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type requestIDKey struct{}

// WithRequestID stores the request identifier that the execute pipeline
// carries into its log fields, so a ledger row or slow-query warning can be
// traced back to the originating call.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request identifier, or "" when the call
// did not come through the HTTP surface.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
