package probegin

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	probelang "github.com/open-rails/probekit/lang"
)

func ctxWith(t *testing.T, target string, header map[string]string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("GET", target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestResolveRequestLanguage(t *testing.T) {
	cases := []struct {
		name   string
		target string
		header map[string]string
		want   string
	}{
		{"query param wins", "/v1/delivery?lang=ru", map[string]string{"Accept-Language": "kk"}, probelang.Russian},
		{"query param with region", "/v1/delivery?lang=KK-kz", nil, probelang.Kazakh},
		{"accept-language header", "/v1/delivery", map[string]string{"Accept-Language": "ru-RU,ru;q=0.9"}, probelang.Russian},
		{"unsupported falls through", "/v1/delivery?lang=en", map[string]string{"Accept-Language": "en-US, ru;q=0.5"}, probelang.Russian},
		{"nothing usable", "/v1/delivery", map[string]string{"Accept-Language": "en-US"}, probelang.Default},
		{"empty request", "/v1/delivery", nil, probelang.Default},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveRequestLanguage(ctxWith(t, tc.target, tc.header))
			if got != tc.want {
				t.Fatalf("resolved %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLanguageMiddlewareAttachesContext(t *testing.T) {
	c := ctxWith(t, "/v1/delivery?lang=ru", nil)
	LanguageMiddleware()(c)
	if got, ok := probelang.LanguageFromContext(c.Request.Context()); !ok || got != probelang.Russian {
		t.Fatalf("context language = %q (ok=%v), want ru", got, ok)
	}
	if got := c.GetString("probekit.language"); got != probelang.Russian {
		t.Fatalf("gin key language = %q, want ru", got)
	}
}
