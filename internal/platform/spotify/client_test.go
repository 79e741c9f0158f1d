package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/hitster/internal/catalog"
	"github.com/phrazzld/hitster/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	*httptest.Server
	tokens atomic.Int32
}

func newFakeAPI(t *testing.T, api http.HandlerFunc) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		f.tokens.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		api(w, r)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) client(t *testing.T, secret string) *Client {
	t.Helper()
	c, err := NewClient(config.SpotifyConfig{
		ClientID:     "id",
		ClientSecret: secret,
		TokenURL:     f.URL + "/token",
		APIBaseURL:   f.URL + "/v1",
	}, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func track(id, name string, artists ...string) map[string]any {
	as := make([]map[string]any, 0, len(artists))
	for _, a := range artists {
		as = append(as, map[string]any{"name": a})
	}
	return map[string]any{
		"id":      id,
		"name":    name,
		"type":    "track",
		"artists": as,
		"album": map[string]any{
			"release_date": "1985-06-01",
			"images": []map[string]any{
				{"url": "https://img/small", "width": 64, "height": 64},
				{"url": "https://img/large", "width": 640, "height": 640},
			},
		},
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/track/" + id},
	}
}

func TestFetch_FollowsPagination(t *testing.T) {
	t.Parallel()

	var api *fakeAPI
	api = newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/playlists/abc":
			next := api.URL + "/v1/playlists/abc/tracks?offset=2"
			writeJSON(w, map[string]any{
				"id":   "abc",
				"name": "Eighties",
				"tracks": map[string]any{
					"total": 3,
					"next":  next,
					"items": []map[string]any{
						{"track": track("t1", "Take On Me", "a-ha")},
						{"track": nil},
						{"track": track("t2", "Under Pressure", "Queen", "David Bowie")},
					},
				},
			})
		case "/v1/playlists/abc/tracks":
			assert.Equal(t, "2", r.URL.Query().Get("offset"))
			writeJSON(w, map[string]any{
				"next":  nil,
				"items": []map[string]any{{"track": track("t3", "Africa", "Toto")}},
			})
		default:
			http.NotFound(w, r)
		}
	})

	got, err := api.client(t, "secret").Fetch(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "Eighties", got.Name)
	require.Len(t, got.Tracks, 3)
	assert.Equal(t, "Take On Me", got.Tracks[0].Title)
	assert.Equal(t, "Queen, David Bowie", got.Tracks[1].Artist)
	assert.Equal(t, 1985, got.Tracks[1].Year)
	assert.Equal(t, "https://open.spotify.com/track/t2", got.Tracks[1].ExternalURL)
	assert.Equal(t, "https://img/large", got.Tracks[1].CoverURL)
	assert.Equal(t, "Africa", got.Tracks[2].Title)
	assert.Equal(t, int32(1), api.tokens.Load(), "the token is reused across pages")
}

func TestFetch_RejectsForeignPaginationLink(t *testing.T) {
	t.Parallel()

	var foreignHits atomic.Int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits.Add(1)
		writeJSON(w, map[string]any{"next": nil, "items": []map[string]any{}})
	}))
	t.Cleanup(foreign.Close)

	for name, next := range map[string]func(api *fakeAPI) string{
		"other host": func(*fakeAPI) string {
			return foreign.URL + "/v1/playlists/abc/tracks?offset=1"
		},
		"other scheme": func(api *fakeAPI) string {
			return "https://" + api.Listener.Addr().String() + "/v1/playlists/abc/tracks?offset=1"
		},
	} {
		t.Run(name, func(t *testing.T) {
			var api *fakeAPI
			api = newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{
					"id":   "abc",
					"name": "Leaky",
					"tracks": map[string]any{
						"next":  next(api),
						"items": []map[string]any{{"track": track("t1", "Take On Me", "a-ha")}},
					},
				})
			})

			_, err := api.client(t, "secret").Fetch(context.Background(), "abc")
			require.ErrorIs(t, err, catalog.ErrUnavailable)
			assert.Contains(t, err.Error(), "pagination link")
		})
	}
	assert.Zero(t, foreignHits.Load(), "no request may reach the foreign host")
}

func TestFetch_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, catalog.ErrNotFound},
		{"bad id", http.StatusBadRequest, catalog.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, catalog.ErrRateLimited},
		{"server error", http.StatusBadGateway, catalog.ErrUnavailable},
		{"forbidden", http.StatusForbidden, catalog.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusTooManyRequests {
					w.Header().Set("Retry-After", "3")
				}
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprintf(w, `{"error":{"status":%d,"message":"nope"}}`, tt.status)
			})

			_, err := api.client(t, "secret").Fetch(context.Background(), "abc")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetch_BadCredentialsAreUnavailable(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("api must not be reached without a token")
	})

	_, err := api.client(t, "wrong").Fetch(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Contains(t, err.Error(), "token request failed")
}

func TestFetch_DeadlineIsUnavailable(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := api.client(t, "secret").Fetch(ctx, "abc")
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.True(t, catalog.IsTransient(err))
}

func TestFetch_MalformedBody(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := api.client(t, "secret").Fetch(context.Background(), "abc")
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.SpotifyConfig{APIBaseURL: "https://api.spotify.com/v1"}, nil)
	assert.Error(t, err)

	_, err = NewClientWithHTTP("not a url", nil, nil)
	assert.Error(t, err)
}

func TestMappingHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1999, releaseYear("1999"))
	assert.Equal(t, 2001, releaseYear("2001-03"))
	assert.Zero(t, releaseYear(""))
	assert.Zero(t, releaseYear("abcd-01-01"))

	assert.Equal(t, "", largestImage(nil))
	assert.Equal(t, trackURLPrefix+"x", trackURL(&trackObject{ID: "x"}))
	assert.Equal(t, "A, B", joinArtists([]artistObject{{Name: "A"}, {Name: ""}, {Name: "B"}}))

	tracks := appendTracks(nil, []playlistItem{
		{Track: &trackObject{Name: "Episode", Type: "episode"}},
		{Track: &trackObject{Name: "Local file", Type: "track"}},
		{Track: &trackObject{Name: "Song", Type: "track", ID: "s"}},
	})
	require.Len(t, tracks, 1)
	assert.Equal(t, "Song", tracks[0].Title)
	assert.Equal(t, unknownArtist, tracks[0].Artist)
}
