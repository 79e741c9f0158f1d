// Package domain contains the core entities of the card generator: playlists,
// their ordered tracks, and the durable jobs that refresh playlist metadata or
// render card sheets from it. It is independent of any storage engine,
// upstream catalog, or rendering backend.
package domain
