package lastfm

// similarArtistsResponse is the artist.getSimilar payload.
type similarArtistsResponse struct {
	SimilarArtists struct {
		Artist []struct {
			Name  string `json:"name"`
			Match string `json:"match"`
			MBID  string `json:"mbid"`
		} `json:"artist"`
	} `json:"similarartists"`
}

// similarTracksResponse is the track.getSimilar payload.
type similarTracksResponse struct {
	SimilarTracks struct {
		Track []struct {
			Name   string `json:"name"`
			Match  float64 `json:"match"`
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"track"`
	} `json:"similartracks"`
}

// topTracksResponse is the artist.getTopTracks payload.
type topTracksResponse struct {
	TopTracks struct {
		Track []struct {
			Name string `json:"name"`
			Attr struct {
				Rank string `json:"rank"`
			} `json:"@attr"`
		} `json:"track"`
	} `json:"toptracks"`
}

// tagTopArtistsResponse is the tag.getTopArtists payload.
type tagTopArtistsResponse struct {
	TopArtists struct {
		Artist []struct {
			Name string `json:"name"`
			Attr struct {
				Rank string `json:"rank"`
			} `json:"@attr"`
		} `json:"artist"`
	} `json:"topartists"`
}

// errorResponse is the Last.fm error envelope.
type errorResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
