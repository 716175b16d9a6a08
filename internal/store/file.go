package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guc1/domain-agent/internal/core"
)

// File persists one JSON document per session under a directory. Writes go
// through a temp file and rename, so a crash never leaves a torn session on
// disk. Serialization is per session via an in-process keyed mutex; the
// backend assumes a single server process owns the directory.
type File struct {
	dir   string
	ttl   time.Duration
	now   func() time.Time
	locks keyedMutex
}

// NewFile creates a file store rooted at dir, creating it if needed.
func NewFile(dir string, ttl time.Duration) (*File, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &File{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}, nil
}

func (f *File) path(id string) string {
	return filepath.Join(f.dir, "session_"+id+".json")
}

func (f *File) read(id string) (*core.Session, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewNotFound(id)
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if f.now().After(sess.UpdatedAt.Add(f.ttl)) {
		_ = os.Remove(f.path(id))
		return nil, core.NewNotFound(id)
	}
	return &sess, nil
}

func (f *File) write(sess *core.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".session_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(sess.ID)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit session file: %w", err)
	}
	return nil
}

// Put inserts a freshly created session.
func (f *File) Put(_ context.Context, sess *core.Session) error {
	l := f.locks.acquire(sess.ID)
	defer f.locks.release(sess.ID, l)
	return f.write(sess)
}

// Get returns the stored session.
func (f *File) Get(_ context.Context, id string) (*core.Session, error) {
	l := f.locks.acquire(id)
	defer f.locks.release(id, l)
	return f.read(id)
}

// Mutate applies fn under the session's lock and commits atomically; an error
// from fn leaves the file untouched.
func (f *File) Mutate(_ context.Context, id string, fn func(*core.Session) error) (*core.Session, error) {
	l := f.locks.acquire(id)
	defer f.locks.release(id, l)

	sess, err := f.read(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = f.now().UTC()
	if err := f.write(sess); err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// Sweep removes expired session files. Invoked periodically by the server.
func (f *File) Sweep() (int, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, "session_*.json"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range matches {
		base := filepath.Base(path)
		id := strings.TrimSuffix(strings.TrimPrefix(base, "session_"), ".json")
		l := f.locks.acquire(id)
		if _, err := f.read(id); core.IsKind(err, core.KindNotFound) {
			removed++
		}
		f.locks.release(id, l)
	}
	return removed, nil
}
