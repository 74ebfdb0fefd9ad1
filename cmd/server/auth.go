package main

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
)

// adminAuth checks bearer tokens against the configured admin token. Tokens are
// compared as HMACs under a per-process key so the comparison does not leak length.
type adminAuth struct {
	key      []byte
	expected []byte
}

func newAdminAuth(token string) (*adminAuth, error) {
	if token == "" {
		return &adminAuth{}, nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate admin auth key: %w", err)
	}
	a := &adminAuth{key: key}
	a.expected = a.sign(token)
	return a, nil
}

func (a *adminAuth) enabled() bool {
	return a.expected != nil
}

func (a *adminAuth) sign(token string) []byte {
	mac := hmac.New(sha256.New, a.key)
	_, _ = mac.Write([]byte(token))
	return mac.Sum(nil)
}

func (a *adminAuth) verify(token string) bool {
	if !a.enabled() || token == "" {
		return false
	}
	return hmac.Equal(a.sign(token), a.expected)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (a *adminAuth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() {
			writeError(w, http.StatusServiceUnavailable, "admin API is disabled")
			return
		}
		if !a.verify(bearerToken(r)) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
