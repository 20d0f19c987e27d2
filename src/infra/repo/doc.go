// Package repo contains the storage adapters for the ports defined in
// src/core/ports.
//
// PostgresRepository is the production store; MemoryRepository backs the
// "memory" store driver and the tests. Both provide per-record atomicity for
// UpdateDomain and never apply a partial change-set. Both also expose
// Create* helpers for seeding: domain registration and account signup are
// handled by other services.
package repo
