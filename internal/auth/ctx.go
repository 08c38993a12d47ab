package auth

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/entity"
)

type contextKey string

const ctxKeyPrincipal contextKey = "auth_principal"

// WithPrincipal attaches the authenticated account to ctx.
func WithPrincipal(ctx context.Context, a *entity.Account) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, a)
}

// PrincipalFrom returns the account set by Gate.Require, or nil.
func PrincipalFrom(ctx context.Context) *entity.Account {
	a, _ := ctx.Value(ctxKeyPrincipal).(*entity.Account)
	return a
}
