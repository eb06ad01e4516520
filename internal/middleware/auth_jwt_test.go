package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerifyJWT(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "tg:42"},
		TelegramID:       42,
	}, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT error: %v", err)
	}
	claims, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("VerifyJWT error: %v", err)
	}
	if claims.Subject != "tg:42" || claims.TelegramID != 42 {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyJWTRejects(t *testing.T) {
	good, _ := SignJWT("secret", TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "tg:1"}}, time.Hour)
	expired, _ := SignJWT("secret", TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "tg:1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}, 0)
	noSubject, _ := SignJWT("secret", TokenClaims{}, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "tg:1", Issuer: tokenIssuer}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]struct{ secret, token string }{
		"wrong secret": {"other", good},
		"expired":      {"secret", expired},
		"no subject":   {"secret", noSubject},
		"alg none":     {"secret", none},
		"garbage":      {"secret", "a.b.c"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := VerifyJWT(tc.secret, tc.token); err == nil {
				t.Fatal("VerifyJWT succeeded, want error")
			}
		})
	}
}

func TestAuthJWTSetsUserID(t *testing.T) {
	token, _ := SignJWT("secret", TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "tg:7"}}, time.Hour)
	var got string
	h := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || got != "tg:7" {
		t.Fatalf("status = %d, user = %q", rec.Code, got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status = %d, want 401", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin("ops")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for token, want := range map[string]int{"ops": http.StatusNoContent, "nope": http.StatusForbidden, "": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("X-Admin-Token", token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("token %q: status = %d, want %d", token, rec.Code, want)
		}
	}

	disabled := RequireAdmin("")(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Admin-Token", "")
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled admin status = %d, want 403", rec.Code)
	}
}
