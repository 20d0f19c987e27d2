package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadirectory/src/core/domain"
	"metadirectory/src/infra/logger"
)

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":         "abc",
		"bearer   abc  ":     "abc",
		"BEARER abc":         "abc",
		"Bearer ":            "",
		"Basic dXNlcjpwdw==": "",
		"abc":                "",
		"":                   "",
	}
	for header, want := range tests {
		assert.Equal(t, want, bearerToken(header), "header %q", header)
	}
}

type stubTokens map[string]*domain.AuthToken

func (s stubTokens) GetToken(_ context.Context, token string) (*domain.AuthToken, error) {
	if token == "boom" {
		return nil, errors.New("store down")
	}
	if t, ok := s[token]; ok {
		return t, nil
	}
	return nil, domain.NewNotFoundError("token")
}

type stubAccounts map[string]*domain.Account

func (s stubAccounts) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, domain.NewNotFoundError("account")
}

func TestCredential(t *testing.T) {
	gin.SetMode(gin.TestMode)

	alice := &domain.Account{ID: "acct-1", Username: "alice"}
	tokens := stubTokens{
		"live":    {Token: "live", AccountID: "acct-1", Scope: domain.TokenScopeOwner},
		"stale":   {Token: "stale", AccountID: "acct-1", Scope: domain.TokenScopeOwner, ExpiresAt: time.Now().Add(-time.Hour)},
		"orphan":  {Token: "orphan", AccountID: "acct-gone", Scope: domain.TokenScopeOwner},
		"machine": {Token: "machine", AccountID: "acct-1", Scope: "platform"},
	}
	accounts := stubAccounts{"acct-1": alice}

	tests := []struct {
		name    string
		header  string
		bearer  string
		account *domain.Account
	}{
		{"no header", "", "", nil},
		{"live token", "Bearer live", "live", alice},
		{"expired token", "Bearer stale", "stale", nil},
		{"orphan token", "Bearer orphan", "orphan", nil},
		{"other scope", "Bearer machine", "machine", nil},
		{"api key", "Bearer some-domain-key", "some-domain-key", nil},
		{"store error", "Bearer boom", "boom", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cred domain.Credential
			var acct *domain.Account

			r := gin.New()
			r.Use(Credential(tokens, accounts, logger.Discard()))
			r.GET("/", func(c *gin.Context) {
				cred = GetCredential(c)
				acct = GetAccount(c)
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusNoContent, w.Code, "never rejects")
			assert.Equal(t, tt.bearer, cred.Bearer)
			assert.Equal(t, tt.account, cred.Account)
			assert.Equal(t, tt.account, acct)
		})
	}
}

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("abc-123"))
	assert.True(t, validRequestID("3f1c2b7e-4f2a-4a58-9d5e-0c1f6b2b9c11"))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID("has space"))
	assert.False(t, validRequestID("line\nbreak"))
	assert.False(t, validRequestID(string(make([]byte, maxRequestIDLen+1))))
}

func TestRequestIDGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = GetRequestID(c) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\r\n")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}
