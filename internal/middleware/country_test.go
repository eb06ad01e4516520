package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "ua")
				r.Header.Set("CF-IPCountry", "pl")
			},
			want: "UA",
		},
		{
			name: "cloudflare unknown ignored",
			setup: func(r *http.Request) {
				r.Header.Set("CF-IPCountry", "XX")
				r.Header.Set("Accept-Language", "uk-UA,uk;q=0.9")
			},
			want: "UA",
		},
		{
			name: "accept-language region",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
			},
			want: "GB",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					t.Fatalf("unexpected ip: %s", ip)
				}
				return "de", nil
			},
			want: "DE",
		},
		{
			name: "resolver error returns empty",
			resolver: func(ip string) (string, error) {
				return "", assertError("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			got := ResolveCountry(req, tc.resolver)
			if got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCountryMiddlewareStoresCode(t *testing.T) {
	var got string
	h := Country(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "pl")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "PL" {
		t.Fatalf("CountryFromContext() = %q, want %q", got, "PL")
	}
}

func TestCountryFromContextDefault(t *testing.T) {
	if got := CountryFromContext(context.Background()); got != "" {
		t.Fatalf("CountryFromContext() default = %q, want empty", got)
	}
}

func TestSessionKey(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionKey(ContextWithUserID(r.Context(), "tg:1"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderSessionID, "tab-a")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "tg:1/tab-a" {
		t.Fatalf("SessionKey = %q, want %q", got, "tg:1/tab-a")
	}
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("missing %s header", HeaderRequestID)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	if got != "tg:1" {
		t.Fatalf("SessionKey without header = %q, want owner id", got)
	}
}
