package models

// Post is a single immutable entry. Content is opaque to the store: it may be
// plain JSON or an encrypted blob.
type Post struct {
	Content   string `json:"content"`
	Timestamp uint64 `json:"timestamp"` // milliseconds since epoch
	Id        uint64 `json:"id"`
}
