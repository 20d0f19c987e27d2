// Package ports defines interfaces (ports) that connect core domain to infrastructure.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern.
//
// Ports are defined here in the core layer, while implementations (adapters)
// live in src/infra/repo and src/infra/cache. This ensures the core has no
// dependency on infrastructure.
package ports

import (
	"context"
	"iter"

	"metadirectory/src/core/domain"
)

// Repository is the base interface for all repositories.
type Repository interface {
	// Health checks if the underlying storage is reachable.
	Health(ctx context.Context) error
}

// DomainRepository reads and mutates domain records. Implementations provide
// per-record atomicity; UpdateDomain must apply the whole change-set or none of it.
type DomainRepository interface {
	GetDomain(ctx context.Context, domainID string) (*domain.Domain, error)
	UpdateDomain(ctx context.Context, domainID string, changes domain.ChangeSet) error
	DeleteDomain(ctx context.Context, domainID string) error
}

// PlaceRepository enumerates and removes places.
type PlaceRepository interface {
	// PlaceIDsForDomain yields the ID of every place bound to domainID. A
	// non-nil error ends the sequence.
	PlaceIDsForDomain(ctx context.Context, domainID string) iter.Seq2[string, error]
	DeletePlace(ctx context.Context, placeID string) error
}

// AccountRepository looks up accounts.
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

// TokenRepository resolves bearer tokens.
type TokenRepository interface {
	GetToken(ctx context.Context, token string) (*domain.AuthToken, error)
}

// DirectoryRepository is the composite store the service runs against.
type DirectoryRepository interface {
	Repository
	DomainRepository
	PlaceRepository
	AccountRepository
	TokenRepository
}
