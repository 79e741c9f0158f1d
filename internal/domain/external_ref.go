package domain

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	playlistHost     = "open.spotify.com"
	playlistPath     = "/playlist/"
	playlistURIScope = "spotify:playlist:"
)

// ParseExternalRef extracts the catalog playlist id from a reference given as
// a playlist URL (query string ignored), a playlist URI, or a bare id.
func ParseExternalRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)

	var id string
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		u, err := url.Parse(ref)
		if err != nil || u.Host != playlistHost || !strings.HasPrefix(u.Path, playlistPath) {
			return "", fmt.Errorf("%w: %q", ErrInvalidExternalRef, ref)
		}
		id = strings.TrimPrefix(u.Path, playlistPath)
	case strings.HasPrefix(ref, playlistURIScope):
		id = strings.TrimPrefix(ref, playlistURIScope)
	default:
		id = ref
	}

	if !isCatalogID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidExternalRef, ref)
	}
	return id, nil
}

// PlaylistURL returns the public catalog URL for a playlist id.
func PlaylistURL(externalID string) string {
	return "https://" + playlistHost + playlistPath + externalID
}

func isCatalogID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
