package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"spd/internal/models"
	"spd/internal/providers"
	"spd/internal/storage/interfaces"
	"spd/internal/structures"
)

const defaultFileMode os.FileMode = 0644

// FileManager keeps the collection in a single file and rewrites it whole on
// every persist. There is no journal and no atomic rename: a failed write can
// leave the file truncated.
type FileManager struct {
	path       string
	mode       os.FileMode
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) *FileManager {
	mode := os.FileMode(conf.Persistence.FileMode)
	if mode == 0 {
		mode = defaultFileMode
	}
	return &FileManager{
		path:       conf.Persistence.FilePath,
		mode:       mode,
		compressor: compressor,
		logger:     logger,
	}
}

func (f *FileManager) Path() string {
	return f.path
}

func (f *FileManager) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("unable to read %s: %w", f.path, err)
		}
		f.logger.Warnf(providers.TypeApp, "Collection file %s not found, creating an empty one", f.path)
		empty := bytes.Clone(models.EmptyCollection)
		if err = f.Persist(empty); err != nil {
			return nil, err
		}
		return empty, nil
	}

	decompressed, err := f.compressor.Decompress(data)
	if err == nil {
		return decompressed, nil
	}

	// A plain JSON file is accepted under any compression setting; it is
	// rewritten compressed on the next append.
	if looksLikeJSON(data) {
		f.logger.Warnf(providers.TypeApp, "Collection file %s is not %s compressed, reading it as plain JSON", f.path, f.compressor.Encoding())
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCollection, f.path, err)
}

func (f *FileManager) Persist(data []byte) error {
	compressed, err := f.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.mode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	if _, err = file.Write(compressed); err != nil {
		file.Close()
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	if err = file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return false
	}
	return trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null"))
}
