package domain

import "testing"

func TestTrackValidate(t *testing.T) {
	t.Parallel()
	valid := Track{
		Title:       "Heroes",
		Artist:      "David Bowie",
		Year:        1977,
		ExternalURL: "https://open.spotify.com/track/7Jh1bpe76CNTCgdgAdBw4Z",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	cases := map[error]func(*Track){
		ErrEmptyTrackTitle:  func(tr *Track) { tr.Title = "" },
		ErrEmptyTrackArtist: func(tr *Track) { tr.Artist = "" },
		ErrEmptyTrackURL:    func(tr *Track) { tr.ExternalURL = "" },
		ErrInvalidTrackYear: func(tr *Track) { tr.Year = -1 },
	}
	for want, mutate := range cases {
		tr := valid
		mutate(&tr)
		if err := tr.Validate(); err != want {
			t.Errorf("Expected error %v, got %v", want, err)
		}
	}
}

func TestValidateTrackOrder(t *testing.T) {
	t.Parallel()
	ordered := []Track{{Position: 0}, {Position: 1}, {Position: 2}}
	if err := ValidateTrackOrder(ordered); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	gap := []Track{{Position: 0}, {Position: 2}}
	if err := ValidateTrackOrder(gap); err != ErrNonContiguousOrder {
		t.Errorf("Expected error %v, got %v", ErrNonContiguousOrder, err)
	}
}

func TestPlaylistValidate(t *testing.T) {
	t.Parallel()
	p := Playlist{Name: "Summer"}
	if err := p.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if p.Refetchable() {
		t.Error("Expected playlist without external id to be non-refetchable")
	}
	p.Name = ""
	if err := p.Validate(); err != ErrEmptyPlaylistName {
		t.Errorf("Expected error %v, got %v", ErrEmptyPlaylistName, err)
	}
}
