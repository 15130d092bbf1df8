package storage

import (
	"spd/internal/providers"
	"spd/internal/storage/interfaces"
	"time"
)

// MetricsStore times every persist and counts failed ones.
type MetricsStore struct {
	inner   interfaces.StoreInterface
	metrics providers.MetricsProviderInterface
}

func (s *MetricsStore) Load() ([]byte, error) {
	return s.inner.Load()
}

func (s *MetricsStore) Persist(data []byte) error {
	start := time.Now()
	err := s.inner.Persist(data)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	if err != nil {
		s.metrics.IncPersistFailures()
	}
	return err
}

func NewInstrumentedStore(fileManager *FileManager, metrics providers.MetricsProviderInterface) interfaces.StoreInterface {
	return &MetricsStore{
		inner:   fileManager,
		metrics: metrics,
	}
}
