package types

// SongRef identifies a song in the permanent library.
type SongRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Track  int    `json:"trackNumber,omitempty"`
	Path   string `json:"path"`
	Format string `json:"format"`
}
