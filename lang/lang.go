// Package lang carries the request language and renders user-facing engine
// messages. Kazakh is the product language; Russian is the fallback for the
// admin-facing strings that never got translated.
package lang

import "context"

// Supported request languages.
const (
	Kazakh  = "kk"
	Russian = "ru"

	Default = Kazakh
)

type ctxKey struct{}

// WithLanguage attaches a request language to ctx.
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, ctxKey{}, language)
}

// LanguageFromContext reads a request language from ctx.
func LanguageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKey{})
	s, ok := v.(string)
	return s, ok && s != ""
}

// Resolve returns the ctx language, or Default when unset.
func Resolve(ctx context.Context) string {
	if l, ok := LanguageFromContext(ctx); ok {
		return l
	}
	return Default
}
