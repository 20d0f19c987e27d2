package domain

import (
	"slices"
	"strings"
	"time"
)

// Role is a permission a caller may hold with respect to a domain.
type Role string

const (
	// RoleDomain is held by the domain server itself (API key holder).
	RoleDomain Role = "DOMAIN"
	// RoleSponsor is held by the sponsoring account or a listed manager.
	RoleSponsor Role = "SPONSOR"
	// RoleAdmin is held by accounts carrying the admin flag.
	RoleAdmin Role = "ADMIN"
)

// AccountRole is a flag stored on an account.
type AccountRole string

const (
	AccountRoleUser  AccountRole = "user"
	AccountRoleAdmin AccountRole = "admin"
)

// Maturity is the content rating a domain advertises.
type Maturity string

const (
	MaturityUnrated  Maturity = "unrated"
	MaturityEveryone Maturity = "everyone"
	MaturityTeen     Maturity = "teen"
	MaturityMature   Maturity = "mature"
	MaturityAdult    Maturity = "adult"
)

// Valid reports whether m is a known maturity rating.
func (m Maturity) Valid() bool {
	switch m {
	case MaturityUnrated, MaturityEveryone, MaturityTeen, MaturityMature, MaturityAdult:
		return true
	}
	return false
}

// Restriction controls who may connect to a domain.
type Restriction string

const (
	RestrictionOpen Restriction = "open"
	RestrictionHifi Restriction = "hifi"
	RestrictionACL  Restriction = "acl"
)

// Valid reports whether r is a known restriction level.
func (r Restriction) Valid() bool {
	switch r {
	case RestrictionOpen, RestrictionHifi, RestrictionACL:
		return true
	}
	return false
}

// AutomaticNetworking is the NAT traversal mode a domain runs in.
type AutomaticNetworking string

const (
	NetworkingFull     AutomaticNetworking = "full"
	NetworkingIP       AutomaticNetworking = "ip"
	NetworkingDisabled AutomaticNetworking = "disabled"
)

// Valid reports whether n is a known networking mode.
func (n AutomaticNetworking) Valid() bool {
	switch n {
	case NetworkingFull, NetworkingIP, NetworkingDisabled:
		return true
	}
	return false
}

// TokenScope limits what an access token may be used for.
type TokenScope string

// TokenScopeOwner tokens act for their account. Tokens of any other scope
// are stored but never identify an account to this service.
const TokenScopeOwner TokenScope = "owner"

// Domain is a registered virtual-world server tracked by the directory.
type Domain struct {
	ID                  string
	Name                string
	Version             string
	Protocol            string
	NetworkAddr         string
	NetworkPort         int
	AutomaticNetworking AutomaticNetworking
	Restricted          bool
	Capacity            int
	Description         string
	Maturity            Maturity
	Restriction         Restriction
	Hosts               []string
	Tags                []string
	ContactInfo         string
	Managers            []string
	Images              []string
	Thumbnail           string
	WorldName           string
	NumUsers            int
	NumAnonUsers        int
	SponsorAccountID    string
	APIKeyHash          string
	TimeOfLastHeartbeat time.Time
	CreatedAt           time.Time
}

// HasManager reports whether username is listed as a manager. Usernames
// compare case-insensitively.
func (d *Domain) HasManager(username string) bool {
	if username == "" {
		return false
	}
	return slices.ContainsFunc(d.Managers, func(m string) bool {
		return strings.EqualFold(m, username)
	})
}

// Account is a user account of the directory.
type Account struct {
	ID        string
	Username  string
	Email     string
	Roles     []AccountRole
	CreatedAt time.Time
}

// IsAdmin reports whether the account carries the admin flag.
func (a *Account) IsAdmin() bool {
	return a != nil && slices.Contains(a.Roles, AccountRoleAdmin)
}

// Place is a named location inside exactly one domain.
type Place struct {
	ID        string
	Name      string
	DomainID  string
	CreatedAt time.Time
}

// AuthToken is an opaque bearer token issued to an account.
type AuthToken struct {
	Token     string
	AccountID string
	Scope     TokenScope
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer valid at now.
func (t *AuthToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Identifies reports whether the token may stand for its account at now.
func (t *AuthToken) Identifies(now time.Time) bool {
	return t.Scope == TokenScopeOwner && !t.Expired(now)
}

// Credential is what the caller presented, after resolution. Bearer is the
// raw Authorization value; Account is set only when Bearer is a live account
// token. A domain proves its identity by presenting its API key as Bearer.
type Credential struct {
	Bearer  string
	Account *Account
}

// Empty reports whether no credential was presented.
func (c Credential) Empty() bool {
	return c.Bearer == ""
}
