package ml

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotReady      = errors.New("model not loaded")
	ErrAlreadyLoaded = errors.New("model load already attempted")
)

// ModelInfo describes the artifact held by a Store.
type ModelInfo struct {
	Kind            string    `json:"kind"`
	Version         string    `json:"version"`
	ArtifactVersion string    `json:"artifact_version,omitempty"`
	Path            string    `json:"path"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// Store owns the process-wide classifier. Load runs at most once; a failed
// load leaves the store permanently not ready.
type Store struct {
	logger *zap.Logger
	cache  *InferenceCache

	once  sync.Once
	ready atomic.Bool
	model Classifier
	info  ModelInfo
}

type StoreOption func(*Store)

// WithCache memoizes inference results in c.
func WithCache(c *InferenceCache) StoreOption {
	return func(s *Store) { s.cache = c }
}

func NewStore(logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the artifact at path and reports version as the served model
// version. Only the first call does any work.
func (s *Store) Load(path, version string) error {
	err := ErrAlreadyLoaded
	s.once.Do(func() {
		err = s.load(path, version)
	})
	return err
}

func (s *Store) load(path, version string) error {
	model, artifact, err := LoadModel(path)
	if err != nil {
		s.logger.Error("failed to load model", zap.String("path", path), zap.Error(err))
		return err
	}

	s.model = model
	s.info = ModelInfo{
		Kind:            artifact.Kind,
		Version:         version,
		ArtifactVersion: artifact.Version,
		Path:            path,
		LoadedAt:        time.Now().UTC(),
	}
	s.ready.Store(true)

	s.logger.Info("model loaded",
		zap.String("path", path),
		zap.String("kind", artifact.Kind),
		zap.String("version", version),
	)
	if artifact.Version != "" && version != "" && artifact.Version != version {
		s.logger.Warn("artifact version differs from configured model version",
			zap.String("artifact_version", artifact.Version),
			zap.String("model_version", version),
		)
	}
	return nil
}

func (s *Store) Ready() bool {
	return s.ready.Load()
}

// Info is only meaningful once Ready reports true.
func (s *Store) Info() ModelInfo {
	if !s.Ready() {
		return ModelInfo{}
	}
	return s.info
}

func (s *Store) Version() string {
	return s.Info().Version
}

// Infer returns the churn probability for features. It has no side effects
// beyond the optional cache.
func (s *Store) Infer(features CustomerFeatures) (float64, error) {
	if !s.Ready() {
		return 0, ErrNotReady
	}
	values := features.Values()
	if s.cache == nil {
		return s.model.PredictProba(values)
	}

	key := keyOf(values)
	if p, ok := s.cache.get(key); ok {
		return p, nil
	}
	p, err := s.model.PredictProba(values)
	if err != nil {
		return 0, err
	}
	s.cache.add(key, p)
	return p, nil
}
