package spotify

// Response shapes for the subset of the Web API the fetcher reads.
// See https://developer.spotify.com/documentation/web-api/reference/get-playlist

type playlistResponse struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Tracks tracksPage `json:"tracks"`
}

type tracksPage struct {
	Items []playlistItem `json:"items"`
	Next  *string        `json:"next"`
	Total int            `json:"total"`
}

type playlistItem struct {
	// Track is null for items that were removed from the catalog.
	Track *trackObject `json:"track"`
}

type trackObject struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Artists      []artistObject    `json:"artists"`
	Album        albumObject       `json:"album"`
	ExternalURLs map[string]string `json:"external_urls"`
}

type artistObject struct {
	Name string `json:"name"`
}

type albumObject struct {
	ReleaseDate string        `json:"release_date"`
	Images      []imageObject `json:"images"`
}

type imageObject struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
