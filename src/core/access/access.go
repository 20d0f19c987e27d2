// Package access decides whether a caller holds a role with respect to a domain.
//
// The evaluator is pure: it never touches a store and never reports which
// role was missing. Callers turn a false result into a uniform denial.
package access

import (
	"golang.org/x/crypto/bcrypt"

	"metadirectory/src/core/domain"
)

// Evaluator checks roles against a target domain.
type Evaluator struct{}

// NewEvaluator creates an Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// HasAccess reports whether cred satisfies at least one of roles for target.
// It fails closed on an empty credential, a nil target, or an empty role set.
func (e *Evaluator) HasAccess(cred domain.Credential, target *domain.Domain, roles ...domain.Role) bool {
	if cred.Empty() || target == nil {
		return false
	}
	for _, role := range roles {
		if e.holds(cred, target, role) {
			return true
		}
	}
	return false
}

// CanManage reports whether acting may change the manager list of target.
// Listed managers may update the domain but not who manages it.
func (e *Evaluator) CanManage(acting *domain.Account, target *domain.Domain) bool {
	if acting == nil || target == nil {
		return false
	}
	if acting.IsAdmin() {
		return true
	}
	return target.SponsorAccountID != "" && acting.ID == target.SponsorAccountID
}

func (e *Evaluator) holds(cred domain.Credential, target *domain.Domain, role domain.Role) bool {
	switch role {
	case domain.RoleDomain:
		return cred.Account == nil && isDomainKey(cred.Bearer, target)
	case domain.RoleSponsor:
		acct := cred.Account
		if acct == nil {
			return false
		}
		if target.SponsorAccountID != "" && acct.ID == target.SponsorAccountID {
			return true
		}
		return target.HasManager(acct.Username)
	case domain.RoleAdmin:
		return cred.Account.IsAdmin()
	default:
		return false
	}
}

// isDomainKey reports whether bearer is the API key of target.
func isDomainKey(bearer string, target *domain.Domain) bool {
	if bearer == "" || target.APIKeyHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(target.APIKeyHash), []byte(bearer)) == nil
}

// HashAPIKey hashes a domain API key for storage.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", domain.NewValidationError("api_key", "cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
