package player

// Item is a playable queue entry. The engine only reads the source URL
// and the descriptive fields it forwards to now-playing observers; the
// concrete type is otherwise opaque and owned by the caller.
type Item interface {
	SourceURL() string
	ItemTitle() string
	ItemArtist() string
	ItemAlbum() string
}

// MediaItem is the plain-struct Item most callers need.
type MediaItem struct {
	URL        string
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
}

func (m MediaItem) SourceURL() string  { return m.URL }
func (m MediaItem) ItemTitle() string  { return m.Title }
func (m MediaItem) ItemArtist() string { return m.Artist }
func (m MediaItem) ItemAlbum() string  { return m.Album }
