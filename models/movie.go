package models

// PlaceholderPoster is served when the metadata provider has no usable
// poster for a title.
const PlaceholderPoster = "/placeholder.jpg"

// MovieRecord is the full metadata for a title combined with the signed-in
// user's tracking state. ImdbID is the stable identity; the membership flags
// and UserRating are recomputed whenever the record is shown in a list.
type MovieRecord struct {
	ImdbID         string   `json:"imdbID"`
	Title          string   `json:"title"`
	Year           string   `json:"year"`
	ExternalRating float64  `json:"imdbRating"`
	Genres         []string `json:"genre"`
	Description    string   `json:"description"`
	Language       string   `json:"language"`
	Director       string   `json:"director"`
	Actors         string   `json:"actors"`
	PosterURL      string   `json:"poster"`
	InWatchlist    bool     `json:"inWatchlist"`
	Watched        bool     `json:"watched"`
	UserRating     int      `json:"userRating"`
	AddedAt        int64    `json:"addedAt,omitempty"`
}
