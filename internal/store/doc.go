// Package store defines the persistence interfaces for the application's
// aggregates along with the shared error taxonomy. Implementations live in
// internal/platform; services depend only on these interfaces.
package store
