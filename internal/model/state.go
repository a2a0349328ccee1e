package model

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i474232898/flight-delay-prediction/internal/features"
	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

type handle struct {
	classifier Classifier
	loadedAt   time.Time
	modTime    time.Time
}

// State is the application-lifetime handle to the loaded classifier. Reads
// are lock-free; loads are serialised and swap the handle atomically, so a
// failed reload keeps serving the previous model.
type State struct {
	path   string
	load   Loader
	now    func() time.Time
	logger *slog.Logger

	loadMu  sync.Mutex
	current atomic.Pointer[handle]
}

// NewState creates an empty State for the artifact at path. Nothing is
// loaded until Load or Refresh is called.
func NewState(path string, load Loader, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &State{
		path:   path,
		load:   load,
		now:    time.Now,
		logger: logger,
	}
}

// Path returns the artifact path.
func (s *State) Path() string {
	return s.path
}

// Load reads the artifact unconditionally.
func (s *State) Load() error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	return s.loadLocked()
}

// Refresh loads the artifact when no model is loaded or when the file's
// modification time changed since the last load.
func (s *State) Refresh() error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	cur := s.current.Load()
	if cur != nil && s.path != "" {
		info, err := os.Stat(s.path)
		if err != nil {
			return fmt.Errorf("stat model file: %w", err)
		}
		if info.ModTime().Equal(cur.modTime) {
			return nil
		}
	}
	return s.loadLocked()
}

func (s *State) loadLocked() error {
	if s.load == nil {
		return fmt.Errorf("no model loader configured")
	}

	var modTime time.Time
	if info, err := os.Stat(s.path); err == nil {
		modTime = info.ModTime()
	}

	clf, err := s.load(s.path)
	if err != nil {
		s.logger.Error("model load failed", "path", s.path, "error", err, "serving_previous", s.Loaded())
		return fmt.Errorf("load model %s: %w", s.path, err)
	}

	h := &handle{classifier: clf, loadedAt: s.now(), modTime: modTime}
	s.current.Store(h)
	s.logger.Info("model loaded", "path", s.path, "loaded_at", h.loadedAt)
	s.inspectSchema(clf)
	return nil
}

// schemaSource is implemented by classifiers that carry their feature schema.
type schemaSource interface {
	Schema() *features.Schema
}

// inspectSchema logs the loaded column layout and warns when the model never
// saw a weather category the resolver can produce.
func (s *State) inspectSchema(clf Classifier) []weather.Category {
	src, ok := clf.(schemaSource)
	if !ok {
		return nil
	}
	schema := src.Schema()
	if schema == nil {
		return nil
	}
	s.logger.Info("model schema", "columns", schema.Columns)

	missing := schema.UnknownWeatherCategories()
	if len(missing) > 0 {
		s.logger.Warn("weather categories missing from model vocabulary", "categories", missing)
	}
	return missing
}

// Set installs a classifier directly.
func (s *State) Set(c Classifier) {
	if c == nil {
		s.current.Store(nil)
		return
	}
	s.current.Store(&handle{classifier: c, loadedAt: s.now()})
}

// Classifier returns the loaded classifier, if any.
func (s *State) Classifier() (Classifier, bool) {
	h := s.current.Load()
	if h == nil {
		return nil, false
	}
	return h.classifier, true
}

// Loaded reports whether a classifier is available.
func (s *State) Loaded() bool {
	return s.current.Load() != nil
}

// LoadedAt returns when the current classifier was installed, or the zero
// time.
func (s *State) LoadedAt() time.Time {
	h := s.current.Load()
	if h == nil {
		return time.Time{}
	}
	return h.loadedAt
}
