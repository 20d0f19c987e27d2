package repo

import (
	"context"
	"iter"
	"slices"
	"sort"
	"sync"

	"metadirectory/src/core/domain"
	"metadirectory/src/core/ports"
)

var _ ports.DirectoryRepository = (*MemoryRepository)(nil)

// MemoryRepository keeps the directory in process memory. It backs the
// "memory" store driver and the service tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	domains  map[string]domain.Domain
	places   map[string]domain.Place
	accounts map[string]domain.Account
	tokens   map[string]domain.AuthToken
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		domains:  make(map[string]domain.Domain),
		places:   make(map[string]domain.Place),
		accounts: make(map[string]domain.Account),
		tokens:   make(map[string]domain.AuthToken),
	}
}

func (r *MemoryRepository) Health(context.Context) error {
	return nil
}

func cloneDomain(d domain.Domain) *domain.Domain {
	d.Hosts = slices.Clone(d.Hosts)
	d.Tags = slices.Clone(d.Tags)
	d.Managers = slices.Clone(d.Managers)
	d.Images = slices.Clone(d.Images)
	return &d
}

// Domains

func (r *MemoryRepository) GetDomain(_ context.Context, domainID string) (*domain.Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.domains[domainID]
	if !ok {
		return nil, domain.NewNotFoundError("domain")
	}
	return cloneDomain(d), nil
}

// CreateDomain stores a copy of d.
func (r *MemoryRepository) CreateDomain(_ context.Context, d *domain.Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.domains[d.ID] = *cloneDomain(*d)
	return nil
}

func (r *MemoryRepository) UpdateDomain(_ context.Context, domainID string, changes domain.ChangeSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.domains[domainID]
	if !ok {
		return domain.NewNotFoundError("domain")
	}
	changes.Apply(&d)
	r.domains[domainID] = *cloneDomain(d)
	return nil
}

func (r *MemoryRepository) DeleteDomain(_ context.Context, domainID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.domains[domainID]; !ok {
		return domain.NewNotFoundError("domain")
	}
	delete(r.domains, domainID)
	return nil
}

// Places

// CreatePlace stores a copy of p.
func (r *MemoryRepository) CreatePlace(_ context.Context, p *domain.Place) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.places[p.ID] = *p
	return nil
}

// GetPlace returns the place with the given ID.
func (r *MemoryRepository) GetPlace(_ context.Context, placeID string) (*domain.Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.places[placeID]
	if !ok {
		return nil, domain.NewNotFoundError("place")
	}
	return &p, nil
}

// PlaceIDsForDomain yields a snapshot taken when iteration starts, in ID
// order; the lock is not held while the caller runs.
func (r *MemoryRepository) PlaceIDsForDomain(_ context.Context, domainID string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		r.mu.RLock()
		var ids []string
		for id, p := range r.places {
			if p.DomainID == domainID {
				ids = append(ids, id)
			}
		}
		r.mu.RUnlock()

		sort.Strings(ids)
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

func (r *MemoryRepository) DeletePlace(_ context.Context, placeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.places[placeID]; !ok {
		return domain.NewNotFoundError("place")
	}
	delete(r.places, placeID)
	return nil
}

// Accounts & tokens

// CreateAccount stores a copy of a.
func (r *MemoryRepository) CreateAccount(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct := *a
	acct.Roles = slices.Clone(a.Roles)
	r.accounts[a.ID] = acct
	return nil
}

func (r *MemoryRepository) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return nil, domain.NewNotFoundError("account")
	}
	a.Roles = slices.Clone(a.Roles)
	return &a, nil
}

// CreateToken stores a copy of t. An empty scope is stored as owner.
func (r *MemoryRepository) CreateToken(_ context.Context, t *domain.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *t
	if stored.Scope == "" {
		stored.Scope = domain.TokenScopeOwner
	}
	r.tokens[t.Token] = stored
	return nil
}

func (r *MemoryRepository) GetToken(_ context.Context, token string) (*domain.AuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.NewNotFoundError("token")
	}
	return &t, nil
}
