package storage

import "errors"

var (
	ErrCorruptCollection = errors.New("collection file is corrupt")
	ErrPersist           = errors.New("unable to persist collection")
)
