// Package postgres contains the PostgreSQL implementations of the store
// interfaces, built on database/sql with the pgx stdlib driver. Schema is
// managed by goose migrations under the migrations directory.
package postgres
