// Package spotify implements catalog.Fetcher against the Spotify Web API
// using the client-credentials flow. Only public playlist metadata is read.
package spotify
