package ports

import (
	"context"

	"metadirectory/src/core/domain"
)

// ExternalService is the base interface for external service adapters.
type ExternalService interface {
	// Health checks if the external service is reachable.
	Health(ctx context.Context) error
}

// Metrics receives counters from the core. A nil Metrics is never passed;
// use NopMetrics when collectors are disabled.
type Metrics interface {
	HeartbeatAccepted()
	FieldRejected(field domain.Field, reason string)
	UpdateDenied()
	DomainDeleted()
	PlaceCascadeFailed()
	PlaceEnumerationFailed()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) HeartbeatAccepted()                 {}
func (NopMetrics) FieldRejected(domain.Field, string) {}
func (NopMetrics) UpdateDenied()                      {}
func (NopMetrics) DomainDeleted()                     {}
func (NopMetrics) PlaceCascadeFailed()                {}
func (NopMetrics) PlaceEnumerationFailed()            {}
