// Package service provides the producer-side operations on jobs: enqueueing
// work for playlists and reading job status and history back.
package service
