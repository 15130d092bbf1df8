package interfaces

// StoreInterface owns the on-disk copy of the post collection.
type StoreInterface interface {
	// Load returns the serialized collection, creating the file with an empty
	// collection when it does not exist yet.
	Load() ([]byte, error)
	// Persist replaces the whole file with data.
	Persist(data []byte) error
}
