// Package catalog defines the boundary to the upstream music catalog that
// playlist metadata is fetched from. It holds the Fetcher port, the error
// taxonomy adapters must report through, and a rate-limiting decorator.
package catalog
