// Package dto contains the JSON shapes the API answers with.
//
// DTOs are kept apart from domain entities so secrets such as the domain
// API key hash can never be serialized by accident, and so legacy field
// names (network_port as a string, time_of_last_heartbeat_s) stay out of
// the core.
package dto
