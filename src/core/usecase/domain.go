package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"metadirectory/src/core/access"
	"metadirectory/src/core/domain"
	"metadirectory/src/core/fields"
	"metadirectory/src/core/ports"
)

// Caller is everything upstream middleware resolved about a request. It is
// built once per request and passed by value; the service never looks for
// identity anywhere else.
type Caller struct {
	// Domain is the target domain, nil when the path did not resolve.
	Domain *domain.Domain
	// Account is the account behind the credential, nil for anonymous
	// callers and for domains authenticating with their API key.
	Account *domain.Account
	// Credential is what the caller presented.
	Credential domain.Credential
}

// DomainRepository is the slice of the store the lifecycle needs.
type DomainRepository interface {
	ports.DomainRepository
	ports.PlaceRepository
}

// DomainService reads, updates and deletes a single domain record.
type DomainService struct {
	repo    DomainRepository
	access  *access.Evaluator
	fields  *fields.Engine
	metrics ports.Metrics
	log     *slog.Logger
	now     func() time.Time

	// retryDelay is the base backoff between place listing attempts.
	retryDelay time.Duration
}

// NewDomainService wires a DomainService. metrics may be nil.
func NewDomainService(repo DomainRepository, ev *access.Evaluator, metrics ports.Metrics, log *slog.Logger) *DomainService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &DomainService{
		repo:    repo,
		access:  ev,
		fields:  fields.NewEngine(ev),
		metrics: metrics,
		log:     log.With("component", "domain_service"),
		now:     time.Now,

		retryDelay: 50 * time.Millisecond,
	}
}

// WithRetryDelay sets the base backoff between place listing attempts.
func (s *DomainService) WithRetryDelay(d time.Duration) *DomainService {
	s.retryDelay = d
	return s
}

// WithClock replaces the time source. Used by tests.
func (s *DomainService) WithClock(now func() time.Time) *DomainService {
	s.now = now
	return s
}

// Get returns the resolved domain. An unresolved domain is reported as an
// authorization failure so the remote server re-negotiates its identity.
func (s *DomainService) Get(_ context.Context, caller Caller) (*domain.Domain, error) {
	if caller.Domain == nil {
		return nil, domain.NewUnauthorizedError(domain.MsgDomainNotFound)
	}
	return caller.Domain, nil
}

// UpdateResult describes a committed heartbeat.
type UpdateResult struct {
	Applied     []string
	Rejected    int
	HeartbeatAt time.Time
}

// Update applies a heartbeat/update payload to the caller's target domain.
// The domain itself, its sponsor or managers, and admins may update. Invalid
// fields are skipped; the heartbeat timestamp is always stamped and the whole
// change-set is committed in one store call.
func (s *DomainService) Update(ctx context.Context, caller Caller, body []byte) (*UpdateResult, error) {
	target := caller.Domain
	if target == nil {
		return nil, domain.NewUnauthorizedError(domain.MsgDomainNotFound)
	}
	if caller.Credential.Empty() {
		s.metrics.UpdateDenied()
		return nil, domain.NewUnauthorizedError(domain.MsgUnauthorized)
	}

	pairs, err := fields.Normalize(body)
	if err != nil {
		return nil, err
	}

	if !s.access.HasAccess(caller.Credential, target, domain.RoleDomain, domain.RoleSponsor, domain.RoleAdmin) {
		s.metrics.UpdateDenied()
		s.log.Info("domain update denied", "domain_id", target.ID)
		return nil, domain.NewUnauthorizedError(domain.MsgUnauthorized)
	}

	changes := domain.ChangeSet{}
	batch := s.fields.ApplyAll(caller.Credential, target, pairs, caller.Account, changes)
	rejected := batch.Rejected()
	for _, r := range rejected {
		s.metrics.FieldRejected(domain.Field(r.Field), rejectReason(r.Err))
		s.log.Debug("field rejected", "domain_id", target.ID, "field", r.Field, "reason", r.Err)
	}

	// Never move the heartbeat backwards, even if this host's clock is
	// behind the one that stamped the previous beat.
	stamp := s.now().UTC()
	if stamp.Before(target.TimeOfLastHeartbeat) {
		stamp = target.TimeOfLastHeartbeat
	}
	changes[domain.FieldTimeOfLastHeartbeat] = stamp

	if err := s.repo.UpdateDomain(ctx, target.ID, changes); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewUnauthorizedError(domain.MsgDomainNotFound)
		}
		return nil, fmt.Errorf("commit domain update: %w", err)
	}
	s.metrics.HeartbeatAccepted()

	return &UpdateResult{
		Applied:     batch.Applied(),
		Rejected:    len(rejected),
		HeartbeatAt: stamp,
	}, nil
}

// DeleteResult reports the place cascade of a delete. Failed places are
// logged and counted but do not fail the delete. EnumerationFailed is set when
// the domain's places could not be listed to the end, so some may be orphaned.
type DeleteResult struct {
	PlacesDeleted     int
	PlacesFailed      int
	EnumerationFailed bool
}

// placeListAttempts bounds how often the place listing is restarted after
// the store fails mid-iteration.
const placeListAttempts = 3

// Delete removes the caller's target domain and then every place bound to
// it. Only admins may delete. The cascade is best-effort: each place is
// removed independently and a failure does not restore the domain.
func (s *DomainService) Delete(ctx context.Context, caller Caller) (*DeleteResult, error) {
	if !caller.Account.IsAdmin() {
		return nil, domain.NewUnauthorizedError(domain.MsgNotAuthorized)
	}
	target := caller.Domain
	if target == nil {
		return nil, domain.NewUnauthorizedError(domain.MsgTargetDomainAbsent)
	}

	if err := s.repo.DeleteDomain(ctx, target.ID); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewUnauthorizedError(domain.MsgTargetDomainAbsent)
		}
		return nil, fmt.Errorf("delete domain: %w", err)
	}
	s.metrics.DomainDeleted()
	s.log.Info("domain deleted", "domain_id", target.ID, "by", caller.Account.ID)

	// The cascade runs to completion once the domain is gone.
	return s.deletePlaces(context.WithoutCancel(ctx), target.ID), nil
}

func (s *DomainService) deletePlaces(ctx context.Context, domainID string) *DeleteResult {
	res := &DeleteResult{}
	var merr *multierror.Error
	// attempted holds places already tried, so a restarted listing does not
	// count a failing place twice.
	attempted := map[string]struct{}{}

	for attempt := 1; attempt <= placeListAttempts; attempt++ {
		listErr := s.deletePlacesOnce(ctx, domainID, attempted, res, &merr)
		if listErr == nil {
			break
		}
		merr = multierror.Append(merr, fmt.Errorf("enumerate places (attempt %d): %w", attempt, listErr))
		if attempt == placeListAttempts {
			res.EnumerationFailed = true
			s.metrics.PlaceEnumerationFailed()
			break
		}
		time.Sleep(s.retryDelay * time.Duration(attempt))
	}

	if err := merr.ErrorOrNil(); err != nil {
		s.log.Error("place cascade incomplete",
			"domain_id", domainID,
			"deleted", res.PlacesDeleted,
			"failed", res.PlacesFailed,
			"enumeration_failed", res.EnumerationFailed,
			"error", err,
		)
	}
	return res
}

// deletePlacesOnce walks the place listing once and returns the listing
// error that stopped it, if any.
func (s *DomainService) deletePlacesOnce(ctx context.Context, domainID string, attempted map[string]struct{}, res *DeleteResult, merr **multierror.Error) error {
	for placeID, err := range s.repo.PlaceIDsForDomain(ctx, domainID) {
		if err != nil {
			return err
		}
		if _, done := attempted[placeID]; done {
			continue
		}
		attempted[placeID] = struct{}{}
		if err := s.repo.DeletePlace(ctx, placeID); err != nil {
			res.PlacesFailed++
			s.metrics.PlaceCascadeFailed()
			*merr = multierror.Append(*merr, fmt.Errorf("place %s: %w", placeID, err))
			continue
		}
		res.PlacesDeleted++
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, domain.ErrForbiddenField):
		return "forbidden"
	default:
		return "invalid_value"
	}
}
