package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"metadirectory/src/core/domain"
	"metadirectory/src/core/ports"
)

const (
	credentialKey = "credential"
	accountKey    = "account"
	bearerPrefix  = "bearer "
)

// Credential resolves the Authorization bearer into a domain.Credential and
// stores it on the context. Only live owner-scoped tokens resolve an account.
// It never rejects a request: a bearer that is not such a token is kept as-is so a domain can present its API key,
// and unresolvable callers are left for the core to deny.
func Credential(tokens ports.TokenRepository, accounts ports.AccountRepository, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := domain.Credential{Bearer: bearerToken(c.GetHeader("Authorization"))}

		if cred.Bearer != "" {
			ctx := c.Request.Context()
			tok, err := tokens.GetToken(ctx, cred.Bearer)
			switch {
			case err == nil && tok.Identifies(time.Now()):
				acct, err := accounts.GetAccount(ctx, tok.AccountID)
				if err == nil {
					cred.Account = acct
				} else if !domain.IsNotFound(err) {
					log.Warn("account lookup failed", "request_id", GetRequestID(c), "error", err)
				}
			case err != nil && !domain.IsNotFound(err):
				log.Warn("token lookup failed", "request_id", GetRequestID(c), "error", err)
			}
		}

		c.Set(credentialKey, cred)
		if cred.Account != nil {
			c.Set(accountKey, cred.Account)
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// GetCredential returns the credential set by Credential, or an empty one.
func GetCredential(c *gin.Context) domain.Credential {
	if v, ok := c.Get(credentialKey); ok {
		if cred, ok := v.(domain.Credential); ok {
			return cred
		}
	}
	return domain.Credential{}
}

// GetAccount returns the authenticated account, or nil.
func GetAccount(c *gin.Context) *domain.Account {
	if v, ok := c.Get(accountKey); ok {
		if acct, ok := v.(*domain.Account); ok {
			return acct
		}
	}
	return nil
}
