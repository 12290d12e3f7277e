// Package cache provides a content-addressed, TTL-expiring store for intent
// analysis results. Keys cover both the normalized prompt and the catalog
// hash, so editing any skill definition silently invalidates every prior
// entry without an explicit bump step.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/skillgate/skillgate/pkg/intent"
	"github.com/skillgate/skillgate/pkg/logger"
)

// DefaultTTL is the maximum age at which a cached analysis remains valid.
const DefaultTTL = time.Hour

// Store is a file-backed cache: one file per key under the root directory.
// Concurrent pipeline invocations may race on the same key; the
// write-temp-then-rename pattern guarantees a reader sees either the old or
// the new complete entry, and last-writer-wins is fine for derived data.
type Store struct {
	dir string
	ttl time.Duration
}

// NewStore creates a cache store rooted at dir. A non-positive ttl falls
// back to DefaultTTL.
func NewStore(dir string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{dir: dir, ttl: ttl}
}

// DefaultDir returns the default cache directory.
func DefaultDir() (string, error) {
	if basePath := os.Getenv("SKILLGATE_BASE_PATH"); basePath != "" {
		return filepath.Join(basePath, "intent-cache"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".skillgate", "intent-cache"), nil
}

// Key computes the stable digest for a (prompt, catalog) pair. The prompt is
// normalized by trimming surrounding whitespace; case is preserved because
// intent patterns may be case-sensitive.
func Key(prompt, catalogHash string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(prompt)))
	h.Write([]byte{0})
	h.Write([]byte(catalogHash))
	return hex.EncodeToString(h.Sum(nil))
}

// entry is the on-disk cache record.
type entry struct {
	CreatedAt time.Time      `json:"created_at"`
	Result    *intent.Result `json:"result"`
}

// Get returns the cached result for the key, or nil if the entry is absent,
// malformed, or older than the TTL. A malformed or expired entry is removed
// best-effort and never fails the caller.
func (s *Store) Get(ctx context.Context, key string) *intent.Result {
	path := s.entryPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Result == nil {
		logger.G(ctx).WithField("key", key).Debug("removing malformed cache entry")
		_ = os.Remove(path)
		return nil
	}

	if time.Since(e.CreatedAt) >= s.ttl {
		_ = os.Remove(path)
		return nil
	}

	return e.Result
}

// Put stores a result under the key via a temporary file in the same
// directory followed by an atomic rename. Failures are returned for the
// caller to log; a cache write failure must never fail the request.
func (s *Store) Put(key string, result *intent.Result) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}

	data, err := json.Marshal(entry{CreatedAt: time.Now(), Result: result})
	if err != nil {
		return errors.Wrap(err, "failed to serialize cache entry")
	}

	path := s.entryPath(key)
	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write cache entry")
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to publish cache entry")
	}

	return nil
}

// GC removes expired and malformed entries, returning the number removed.
// It runs off the hot path; failures are non-fatal.
func (s *Store) GC(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read cache directory")
	}

	removed := 0
	for _, dirEntry := range entries {
		if dirEntry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, dirEntry.Name())

		// Abandoned temp files from interrupted writes are garbage too.
		if strings.Contains(dirEntry.Name(), ".tmp-") {
			if os.Remove(path) == nil {
				removed++
			}
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var e entry
		if err := json.Unmarshal(data, &e); err != nil || time.Since(e.CreatedAt) >= s.ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		logger.G(ctx).WithField("removed", removed).Debug("cache garbage collection complete")
	}
	return removed, nil
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}
