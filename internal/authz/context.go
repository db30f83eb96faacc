package authz

import (
	"context"

	"github.com/mehmetcc/medgate/internal/person"
)

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p *person.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns nil when the call was not authenticated.
func PrincipalFromContext(ctx context.Context) *person.Principal {
	if p, ok := ctx.Value(principalKey).(*person.Principal); ok {
		return p
	}
	return nil
}
