package probegin

import (
	"strings"

	"github.com/gin-gonic/gin"

	probelang "github.com/open-rails/probekit/lang"
)

var supportedLangs = map[string]struct{}{
	probelang.Kazakh:  {},
	probelang.Russian: {},
}

func normalizeLangCode(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	if _, ok := supportedLangs[s]; !ok {
		return ""
	}
	return s
}

// resolveRequestLanguage implements the transport language contract:
// `?lang` query param > `Accept-Language` header > default.
func resolveRequestLanguage(c *gin.Context) string {
	if qp := normalizeLangCode(c.Query("lang")); qp != "" {
		return qp
	}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		if i := strings.IndexByte(part, ';'); i >= 0 {
			part = part[:i]
		}
		if al := normalizeLangCode(part); al != "" {
			return al
		}
	}
	return probelang.Default
}

// LanguageMiddleware infers request language and attaches it to the request context.
func LanguageMiddleware() gin.HandlerFunc {
	return func(g *gin.Context) {
		l := resolveRequestLanguage(g)
		g.Set("probekit.language", l)
		g.Request = g.Request.WithContext(probelang.WithLanguage(g.Request.Context(), l))
		g.Next()
	}
}
