package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/phrazzld/hitster/internal/catalog"
	"github.com/phrazzld/hitster/internal/config"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/platform/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	trackURLPrefix = "https://open.spotify.com/track/"
	unknownArtist  = "Unknown artist"
)

// maxPages bounds pagination so a misbehaving next link cannot loop forever.
const maxPages = 200

// Client fetches playlists from the Web API.
type Client struct {
	baseURL string
	origin  *url.URL
	http    *http.Client
	logger  *slog.Logger
}

var _ catalog.Fetcher = (*Client)(nil)

// NewClient creates a Client that authenticates with client credentials.
// Tokens are fetched lazily and refreshed by the transport.
func NewClient(cfg config.SpotifyConfig, logger *slog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client id and secret are required")
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return NewClientWithHTTP(cfg.APIBaseURL, cc.Client(context.Background()), logger)
}

// NewClientWithHTTP creates a Client that sends requests through httpClient,
// which must already add authorization.
func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	origin, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid spotify api base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		origin:  origin,
		http:    httpClient,
		logger:  logger.With(slog.String("component", "spotify")),
	}, nil
}

// Fetch implements catalog.Fetcher. It follows track pagination until the
// whole playlist has been read.
func (c *Client) Fetch(ctx context.Context, externalID string) (*catalog.Playlist, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	var first playlistResponse
	if err := c.get(ctx, c.baseURL+"/playlists/"+url.PathEscape(externalID), &first); err != nil {
		return nil, err
	}

	result := &catalog.Playlist{Name: first.Name}
	result.Tracks = appendTracks(result.Tracks, first.Tracks.Items)

	next := first.Tracks.Next
	for pages := 1; next != nil && *next != ""; pages++ {
		if pages >= maxPages {
			return nil, fmt.Errorf("%w: playlist %s exceeds %d pages", catalog.ErrUnavailable, externalID, maxPages)
		}
		if err := c.sameOrigin(*next); err != nil {
			return nil, err
		}
		var page tracksPage
		if err := c.get(ctx, *next, &page); err != nil {
			return nil, err
		}
		result.Tracks = appendTracks(result.Tracks, page.Items)
		next = page.Next
	}

	log.Debug("fetched playlist",
		slog.String("external_id", externalID),
		slog.Int("tracks", len(result.Tracks)),
		slog.Int("reported_total", first.Tracks.Total))
	return result, nil
}

// sameOrigin rejects pagination links that point away from the API host,
// since the transport attaches the bearer token to every request.
func (c *Client) sameOrigin(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: malformed pagination link: %w", catalog.ErrUnavailable, err)
	}
	if !strings.EqualFold(u.Scheme, c.origin.Scheme) || !strings.EqualFold(u.Host, c.origin.Host) {
		return fmt.Errorf("%w: pagination link %s://%s leaves %s://%s",
			catalog.ErrUnavailable, u.Scheme, u.Host, c.origin.Scheme, c.origin.Host)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return catalog.Unavailable(transportError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", catalog.ErrUnavailable, err)
	}
	return nil
}

// transportError unwraps token endpoint failures so the detail names the
// credential problem rather than the request URL.
func transportError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("token request failed: %s", re.Error())
	}
	return err
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	message := http.StatusText(resp.StatusCode)
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %d %s", catalog.ErrNotFound, resp.StatusCode, message)
	case resp.StatusCode == http.StatusTooManyRequests:
		if after := resp.Header.Get("Retry-After"); after != "" {
			return fmt.Errorf("%w: retry after %ss", catalog.ErrRateLimited, after)
		}
		return catalog.ErrRateLimited
	default:
		return fmt.Errorf("%w: %d %s", catalog.ErrUnavailable, resp.StatusCode, message)
	}
}

func appendTracks(tracks []domain.Track, items []playlistItem) []domain.Track {
	for _, item := range items {
		t := item.Track
		if t == nil || t.Name == "" || (t.Type != "" && t.Type != "track") {
			continue
		}
		// Local files have no catalog link and cannot be printed as a card.
		link := trackURL(t)
		if link == "" {
			continue
		}
		artist := joinArtists(t.Artists)
		if artist == "" {
			artist = unknownArtist
		}
		tracks = append(tracks, domain.Track{
			Title:       t.Name,
			Artist:      artist,
			Year:        releaseYear(t.Album.ReleaseDate),
			ExternalURL: link,
			CoverURL:    largestImage(t.Album.Images),
		})
	}
	return tracks
}

func joinArtists(artists []artistObject) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// releaseYear reads the year from a release date of any precision
// ("1985", "1985-06" or "1985-06-01"). Unknown dates yield 0.
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 0 {
		return 0
	}
	return year
}

func trackURL(t *trackObject) string {
	if u := t.ExternalURLs["spotify"]; u != "" {
		return u
	}
	if t.ID != "" {
		return trackURLPrefix + t.ID
	}
	return ""
}

func largestImage(images []imageObject) string {
	best, bestArea := "", -1
	for _, img := range images {
		if area := img.Width * img.Height; area > bestArea {
			best, bestArea = img.URL, area
		}
	}
	return best
}
