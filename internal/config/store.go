// Package config owns the project configuration document (.env.json): API tokens, URLs and the
// personal-to-corporate email mapping table. The document may be edited by hand while the process
// runs; every read and write first checks whether the file changed on disk and reloads it.
package config

import (
	"bytes"
	"commitlens/internal/types"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	log "github.com/sirupsen/logrus"
)

// fingerprint identifies one version of the file on disk.
type fingerprint struct {
	mod  time.Time
	size int64
}

// Store is a JSON-file backed configuration document.
// Readers run concurrently; writers, including reload-on-change, are exclusive.
// Unknown top-level keys are kept and written back untouched.
type Store struct {
	path string

	mu          sync.RWMutex
	initialized bool
	doc         map[string]any
	mappings    map[string]string // as stored in the document
	index       map[string]string // types.EmailKey(from) -> to
	seen        fingerprint
	lastErr     error
}

func NewStore(path string) *Store {
	return &Store{
		path:     path,
		doc:      map[string]any{},
		mappings: map[string]string{},
		index:    map[string]string{},
	}
}

func (s *Store) Path() string { return s.path }

// LastError returns the most recent load or write failure, nil if the last operation succeeded.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Get returns a scalar value. Objects and arrays are not scalars and report false.
func (s *Store) Get(key string) (v string, ok bool) {
	s.read(func() {
		v, ok = scalar(s.doc[key])
	})
	return
}

// GetOr returns the value for key, or def when the key is absent or blank.
func (s *Store) GetOr(key, def string) string {
	v, ok := s.Get(key)
	if !ok || v == "" {
		return def
	}
	return v
}

// Strings returns a copy of a nested object of strings, e.g. "hibobFields". Non-string members are skipped.
func (s *Store) Strings(key string) map[string]string {
	out := map[string]string{}
	s.read(func() {
		obj, _ := s.doc[key].(map[string]any)
		for k, v := range obj {
			if str, ok := v.(string); ok {
				out[k] = str
			}
		}
	})
	return out
}

// MapEmail returns the mapped address for email, or email unchanged. Matching ignores case and
// surrounding space. The substitution is a single hop: the result is not mapped again.
func (s *Store) MapEmail(email string) (out string) {
	out = email
	s.read(func() {
		if to, ok := s.index[types.EmailKey(email)]; ok {
			out = to
		}
	})
	return
}

// AllMappings returns a snapshot copy of the mapping table.
func (s *Store) AllMappings() map[string]string {
	out := map[string]string{}
	s.read(func() {
		for k, v := range s.mappings {
			out[k] = v
		}
	})
	return out
}

// AddMapping inserts or overwrites the mapping from -> to. An existing key differing only in
// case is replaced, so a source address has at most one target.
func (s *Store) AddMapping(from, to string, persist bool) error {
	return s.AddMappings(map[string]string{from: to}, persist)
}

// AddMappings applies several mappings with a single write.
func (s *Store) AddMappings(m map[string]string, persist bool) error {
	for from, to := range m {
		if types.EmailKey(from) == "" || types.EmailKey(to) == "" {
			return types.Err(types.ErrConfig, nil, "mapping %q -> %q: both addresses are required", from, to)
		}
	}
	return s.write(persist, func() bool {
		for from, to := range m {
			s.dropMappingLocked(from)
			s.mappings[from] = to
			s.index[types.EmailKey(from)] = to
		}
		return true
	})
}

// RemoveMapping deletes the mapping for email. It reports false when there was nothing to remove.
func (s *Store) RemoveMapping(email string, persist bool) (removed bool, err error) {
	err = s.write(persist, func() bool {
		removed = s.dropMappingLocked(email)
		return removed
	})
	return
}

// Update sets an arbitrary scalar value. The mapping table has its own methods and cannot be set here.
func (s *Store) Update(key, value string, persist bool) error {
	if key == KeyEmailMappings {
		return types.Err(types.ErrConfig, nil, "use AddMapping/RemoveMapping for %s", key)
	}
	return s.write(persist, func() bool {
		s.doc[key] = value
		return true
	})
}

// SetDirectoryCredentials stores the directory token and base URL in one write.
func (s *Store) SetDirectoryCredentials(token, baseURL string) error {
	return s.write(true, func() bool {
		s.doc[KeyHiBobToken] = token
		if baseURL != "" {
			s.doc[KeyHiBobURL] = baseURL
		}
		return true
	})
}

// read runs fn under the read lock, upgrading to a reload first if the document changed on disk.
func (s *Store) read(fn func()) {
	s.mu.RLock()
	if s.initialized && !s.changedOnDisk() {
		defer s.mu.RUnlock()
		fn()
		return
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()
	fn()
}

// write applies mutate under the write lock. The document is written back only when persist is
// set and mutate reports a change. In-memory state stays updated even if the write fails.
func (s *Store) write(persist bool, mutate func() bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()
	if !mutate() || !persist {
		return nil
	}
	return s.writeLocked()
}

// syncLocked performs lazy initialization and reload-on-change.
func (s *Store) syncLocked() {
	if !s.initialized {
		s.initialized = true
		if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", s.path).Info("config file not found, writing template")
			s.setDocLocked(defaultDocument())
			if err := s.writeLocked(); err != nil {
				log.WithError(err).WithField("path", s.path).Warn("failed to write config template")
			}
			return
		}
		s.loadLocked()
		return
	}
	if s.changedOnDisk() {
		log.WithField("path", s.path).Debug("config file changed on disk, reloading")
		s.loadLocked()
	}
}

// changedOnDisk reports whether the file differs from the last version seen.
// A file that cannot be stat'ed is treated as unchanged; the in-memory copy keeps serving.
func (s *Store) changedOnDisk() bool {
	fi, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return !fi.ModTime().Equal(s.seen.mod) || fi.Size() != s.seen.size
}

func (s *Store) loadLocked() {
	fi, err := os.Stat(s.path)
	if err == nil {
		// Remember this version even if it fails to parse, so a broken file is not re-read on every call.
		s.seen = fingerprint{mod: fi.ModTime(), size: fi.Size()}
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		s.lastErr = types.Err(types.ErrConfig, err, "read %s", s.path)
		log.WithError(err).WithField("path", s.path).Error("failed to read config file")
		return
	}
	// Numbers stay json.Number so unknown keys are written back exactly as read.
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		s.lastErr = types.Err(types.ErrConfig, err, "parse %s", s.path)
		log.WithError(err).WithField("path", s.path).Error("config file is not valid JSON, keeping previous values")
		return
	}
	if doc == nil {
		doc = map[string]any{}
	}
	s.setDocLocked(doc)
	s.lastErr = nil
}

func (s *Store) setDocLocked(doc map[string]any) {
	s.doc = doc
	s.mappings = map[string]string{}
	s.index = map[string]string{}
	raw, _ := doc[KeyEmailMappings].(map[string]any)
	for from, v := range raw {
		to, ok := v.(string)
		if !ok || to == "" {
			continue
		}
		s.mappings[from] = to
		s.index[types.EmailKey(from)] = to
	}
}

func (s *Store) dropMappingLocked(email string) bool {
	key := types.EmailKey(email)
	if _, ok := s.index[key]; !ok {
		return false
	}
	delete(s.index, key)
	for from := range s.mappings {
		if types.EmailKey(from) == key {
			delete(s.mappings, from)
		}
	}
	return true
}

func (s *Store) writeLocked() error {
	mappings := make(map[string]any, len(s.mappings))
	for k, v := range s.mappings {
		mappings[k] = v
	}
	s.doc[KeyEmailMappings] = mappings

	b, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.lastErr = types.Err(types.ErrPersist, err, "encode %s", s.path)
		return s.lastErr
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.lastErr = types.Err(types.ErrPersist, err, "create %s", dir)
			return s.lastErr
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		s.lastErr = types.Err(types.ErrPersist, err, "write %s", s.path)
		log.WithError(err).WithField("path", s.path).Error("failed to write config file")
		return s.lastErr
	}
	if fi, err := os.Stat(s.path); err == nil {
		s.seen = fingerprint{mod: fi.ModTime(), size: fi.Size()}
	}
	s.lastErr = nil
	return nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64, bool, json.Number:
		return fmt.Sprint(t), true
	}
	return "", false
}
