package tasks

import (
	"context"
	"strings"
)

// CredentialAccessor yields the end user's bearer credential for the current request.
//
// ok is false when no credential is available; implementations never fabricate one.
type CredentialAccessor interface {
	Credential(ctx context.Context) (credential string, ok bool)
}

// CredentialFunc adapts a function to [CredentialAccessor].
type CredentialFunc func(ctx context.Context) (string, bool)

func (f CredentialFunc) Credential(ctx context.Context) (string, bool) {
	return f(ctx)
}

// StaticCredential is a fixed credential, as used by terminal front-ends that read a token from config.
type StaticCredential string

func (s StaticCredential) Credential(context.Context) (string, bool) {
	v := strings.TrimSpace(string(s))
	return v, v != ""
}

type credentialKey struct{}

// WithCredential returns a context carrying credential.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// ContextCredentials reads the credential stored by [WithCredential].
var ContextCredentials CredentialAccessor = CredentialFunc(func(ctx context.Context) (string, bool) {
	v, _ := ctx.Value(credentialKey{}).(string)
	v = strings.TrimSpace(v)
	return v, v != ""
})
