package utils

import (
	"context"

	"dishdash-be/internal/account"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores the authenticated caller (called by middleware).
func WithPrincipal(ctx context.Context, p account.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller, or the zero Principal for anonymous
// requests.
func PrincipalFrom(ctx context.Context) (account.Principal, bool) {
	p, ok := ctx.Value(principalKey).(account.Principal)
	return p, ok && p.AccountID != ""
}
