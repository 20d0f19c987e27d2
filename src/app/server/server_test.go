package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"metadirectory/src/app/server"
	"metadirectory/src/core/domain"
	"metadirectory/src/infra/config"
	"metadirectory/src/infra/logger"
	"metadirectory/src/infra/repo"
)

const (
	domainKey    = "api-key-harbor"
	sponsorToken = "tok-sponsor"
	adminToken   = "tok-admin"
	expiredToken = "tok-expired"
)

type ServerSuite struct {
	suite.Suite
	store  *repo.MemoryRepository
	router *gin.Engine
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 0, MaxBodyBytes: 1024, ShutdownTimeout: time.Second},
		Log:     config.LogConfig{Level: "error", Format: "plain"},
		Store:   config.StoreConfig{Driver: "memory"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func (s *ServerSuite) SetupTest() {
	ctx := context.Background()
	s.store = repo.NewMemoryRepository()

	hash, err := bcrypt.GenerateFromPassword([]byte(domainKey), bcrypt.MinCost)
	s.Require().NoError(err)

	s.Require().NoError(s.store.CreateAccount(ctx, &domain.Account{ID: "acct-sponsor", Username: "owner", Roles: []domain.AccountRole{domain.AccountRoleUser}}))
	s.Require().NoError(s.store.CreateAccount(ctx, &domain.Account{ID: "acct-admin", Username: "root", Roles: []domain.AccountRole{domain.AccountRoleAdmin}}))
	s.Require().NoError(s.store.CreateToken(ctx, &domain.AuthToken{Token: sponsorToken, AccountID: "acct-sponsor", Scope: domain.TokenScopeOwner}))
	s.Require().NoError(s.store.CreateToken(ctx, &domain.AuthToken{Token: adminToken, AccountID: "acct-admin", Scope: domain.TokenScopeOwner}))
	s.Require().NoError(s.store.CreateToken(ctx, &domain.AuthToken{
		Token: expiredToken, AccountID: "acct-admin", Scope: domain.TokenScopeOwner, ExpiresAt: time.Now().Add(-time.Minute),
	}))
	s.Require().NoError(s.store.CreateDomain(ctx, &domain.Domain{
		ID:               "dom-1",
		Name:             "harbor",
		SponsorAccountID: "acct-sponsor",
		APIKeyHash:       string(hash),
		NetworkPort:      40102,
		Restriction:      domain.RestrictionOpen,
	}))
	s.Require().NoError(s.store.CreatePlace(ctx, &domain.Place{ID: "p1", Name: "dock", DomainID: "dom-1"}))

	s.router = server.New(testConfig(), logger.Discard(), server.Deps{Repo: s.store}).Router()
}

func (s *ServerSuite) do(method, path, bearer, body string) (*httptest.ResponseRecorder, map[string]any) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *ServerSuite) TestGetDomain() {
	w, body := s.do(http.MethodGet, "/api/v1/domains/dom-1", "", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, body["success"])

	data := body["data"].(map[string]any)["domain"].(map[string]any)
	s.Equal("dom-1", data["domain_id"])
	s.Equal("40102", data["network_port"])
	s.NotContains(data, "api_key")
	s.NotContains(data, "api_key_hash")

	// Legacy copy at the top level.
	s.Equal(data, body["domain"])
}

func (s *ServerSuite) TestGetUnknownDomain() {
	w, body := s.do(http.MethodGet, "/api/v1/domains/nope", "", "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(false, body["success"])
	s.Equal(domain.MsgDomainNotFound, body["message"])
	s.NotEmpty(body["request_id"])
}

func (s *ServerSuite) TestHeartbeatWithAPIKey() {
	w, body := s.do(http.MethodPut, "/api/v1/domains/dom-1", domainKey,
		`{"domain":{"version":"2.0","heartbeat":{"num_users":4}}}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(true, body["success"])
	s.Equal("dom-1", body["data"].(map[string]any)["domain_id"])

	d, err := s.store.GetDomain(context.Background(), "dom-1")
	s.Require().NoError(err)
	s.Equal("2.0", d.Version)
	s.Equal(4, d.NumUsers)
	s.False(d.TimeOfLastHeartbeat.IsZero())
}

func (s *ServerSuite) TestSponsorMetaUpdate() {
	w, _ := s.do(http.MethodPut, "/api/v1/domains/dom-1", sponsorToken,
		`{"domain":{"meta":{"world_name":"Harbor","managers":["deputy"]}}}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	d, err := s.store.GetDomain(context.Background(), "dom-1")
	s.Require().NoError(err)
	s.Equal("Harbor", d.WorldName)
	s.Equal([]string{"deputy"}, d.Managers)
}

func (s *ServerSuite) TestUpdateStatusCodes() {
	tests := []struct {
		name    string
		path    string
		bearer  string
		body    string
		code    int
		message string
	}{
		{"anonymous", "/api/v1/domains/dom-1", "", `{"domain":{"version":"x"}}`, http.StatusUnauthorized, domain.MsgUnauthorized},
		{"wrong key", "/api/v1/domains/dom-1", "guess", `{"domain":{"version":"x"}}`, http.StatusUnauthorized, domain.MsgUnauthorized},
		{"expired token", "/api/v1/domains/dom-1", expiredToken, `{"domain":{"version":"x"}}`, http.StatusUnauthorized, domain.MsgUnauthorized},
		{"unknown domain", "/api/v1/domains/nope", domainKey, `{"domain":{"version":"x"}}`, http.StatusUnauthorized, domain.MsgDomainNotFound},
		{"empty domain object", "/api/v1/domains/dom-1", domainKey, `{"domain":{}}`, http.StatusBadRequest, domain.MsgBadlyFormed},
		{"not json", "/api/v1/domains/dom-1", domainKey, `domain=1`, http.StatusBadRequest, domain.MsgBadlyFormed},
		{"too large", "/api/v1/domains/dom-1", domainKey, `{"domain":{"description":"` + strings.Repeat("x", 2048) + `"}}`, http.StatusRequestEntityTooLarge, domain.MsgBadlyFormed},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w, body := s.do(http.MethodPut, tt.path, tt.bearer, tt.body)
			s.Equal(tt.code, w.Code)
			s.Equal(false, body["success"])
			s.Equal(tt.message, body["message"])
		})
	}

	d, err := s.store.GetDomain(context.Background(), "dom-1")
	s.Require().NoError(err)
	s.Empty(d.Version)
}

func (s *ServerSuite) TestDelete() {
	w, body := s.do(http.MethodDelete, "/api/v1/domains/dom-1", sponsorToken, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(domain.MsgNotAuthorized, body["message"])

	w, body = s.do(http.MethodDelete, "/api/v1/domains/dom-1", domainKey, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(domain.MsgNotAuthorized, body["message"])

	w, body = s.do(http.MethodDelete, "/api/v1/domains/nope", adminToken, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(domain.MsgTargetDomainAbsent, body["message"])

	w, body = s.do(http.MethodDelete, "/api/v1/domains/dom-1", adminToken, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, body["success"])

	_, err := s.store.GetDomain(context.Background(), "dom-1")
	s.True(domain.IsNotFound(err))
	_, err = s.store.GetPlace(context.Background(), "p1")
	s.True(domain.IsNotFound(err))
}

func (s *ServerSuite) TestHealthAndMetrics() {
	w, body := s.do(http.MethodGet, "/health/detailed", "", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", body["status"])

	s.do(http.MethodPut, "/api/v1/domains/dom-1", domainKey, `{"domain":{"version":"1"}}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	s.router.ServeHTTP(mw, req)
	s.Equal(http.StatusOK, mw.Code)
	s.Contains(mw.Body.String(), "directory_heartbeats_accepted_total 1")
	s.Contains(mw.Body.String(), `route="/api/v1/domains/:domain_id"`)
}

func (s *ServerSuite) TestRequestIDEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal("abc-123", w.Header().Get("X-Request-ID"))
}

func (s *ServerSuite) TestNoRoute() {
	w, body := s.do(http.MethodGet, "/api/v1/places", "", "")
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(false, body["success"])
}
