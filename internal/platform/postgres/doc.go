// Package postgres implements the job and playlist stores defined in
// internal/store on PostgreSQL. It also owns the PostgreSQL schema as
// embedded goose migrations and maps pgx errors onto the store sentinels.
package postgres
