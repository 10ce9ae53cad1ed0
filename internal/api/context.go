package api

import (
	"context"
)

type contextKey string

const credentialContextKey contextKey = "credential"

// CredentialFromContext extracts the caller's bearer credential from context
func CredentialFromContext(ctx context.Context) string {
	credential, _ := ctx.Value(credentialContextKey).(string)
	return credential
}

// ContextWithCredential adds the caller's bearer credential to context
func ContextWithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialContextKey, credential)
}
