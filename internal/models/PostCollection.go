package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// EmptyCollection is the canonical serialization of a collection without posts.
var EmptyCollection = []byte("[]")

// PostCollection is the in-memory, ordered list of posts together with its
// serialized form and fingerprint. The derived views are rebuilt on every
// append and installed together with the new post.
//
// PostCollection does no locking of its own. Append must only be called while
// the caller holds exclusive access; Snapshot needs at least shared access.
type PostCollection struct {
	posts       []Post
	nextId      uint64
	serialized  []byte
	fingerprint string
	now         func() time.Time
}

// NewPostCollection parses raw as a serialized collection. raw is kept verbatim
// as the serialized form, so its fingerprint matches what was last persisted.
func NewPostCollection(raw []byte) (*PostCollection, error) {
	var posts []Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, fmt.Errorf("unable to decode posts: %w", err)
	}

	var nextId uint64
	for _, p := range posts {
		if p.Id+1 > nextId {
			nextId = p.Id + 1
		}
	}

	serialized := make([]byte, len(raw))
	copy(serialized, raw)

	return &PostCollection{
		posts:       posts,
		nextId:      nextId,
		serialized:  serialized,
		fingerprint: Fingerprint(serialized),
		now:         time.Now,
	}, nil
}

// Append stores content as a new post with the next id and the current time.
// The collection is left untouched if the new serialized form cannot be built.
func (pc *PostCollection) Append(content string) (Post, error) {
	post := Post{
		Content:   content,
		Timestamp: uint64(pc.now().UnixMilli()),
		Id:        pc.nextId,
	}

	posts := append(pc.posts, post)
	serialized, err := json.Marshal(posts)
	if err != nil {
		return Post{}, fmt.Errorf("unable to encode posts: %w", err)
	}

	pc.posts = posts
	pc.nextId++
	pc.serialized = serialized
	pc.fingerprint = Fingerprint(serialized)

	return post, nil
}

// Snapshot returns the cached serialized form and its fingerprint. The returned
// slice is shared and must not be modified.
func (pc *PostCollection) Snapshot() ([]byte, string) {
	return pc.serialized, pc.fingerprint
}

func (pc *PostCollection) Len() int {
	return len(pc.posts)
}

func (pc *PostCollection) NextId() uint64 {
	return pc.nextId
}

// Posts returns a copy of the stored posts in id order.
func (pc *PostCollection) Posts() []Post {
	out := make([]Post, len(pc.posts))
	copy(out, pc.posts)
	return out
}

// SetClock replaces the time source used to stamp new posts.
func (pc *PostCollection) SetClock(now func() time.Time) {
	pc.now = now
}
