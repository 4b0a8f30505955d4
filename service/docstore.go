package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Storage keys for the two shared documents
const (
	CollectionKey = "data/orders.json"
	SettingsKey   = "config/settings.json"
)

// ErrVersionConflict is returned by CheckAndPut when the stored document
// changed since it was read
var ErrVersionConflict = errors.New("document version conflict")

// documents are stored inside a version envelope so read-modify-write
// cycles can detect a concurrent writer
type envelope struct {
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// DocumentStore treats one blob per key as a whole JSON document. Reads
// fail soft: an absent key or an undecodable body yields the caller's
// default and version 0. Writes go through CheckAndPut so that a stale
// read cannot silently clobber a newer write; per-key locks serialize
// read-modify-write cycles within this process.
type DocumentStore struct {
	objects ObjectStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDocumentStore(objects ObjectStore) *DocumentStore {
	return &DocumentStore{
		objects: objects,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *DocumentStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Get decodes the document at key into out and returns its version. A
// missing key or a body that is not valid JSON leaves out untouched and
// returns version 0 with no error; an envelope whose payload does not
// decode leaves out untouched but reports the stored version, so a
// CheckAndPut from that read can still replace the broken document. Any
// other storage failure propagates.
func (s *DocumentStore) Get(ctx context.Context, key string, out any) (int64, error) {
	data, err := s.objects.GetObject(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load document %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return 0, nil
	}
	if len(env.Data) == 0 {
		// document predates the version envelope, body is the document
		if err := json.Unmarshal(data, out); err != nil {
			return 0, nil
		}
		return 0, nil
	}
	// An undecodable payload leaves out at its default; reporting the
	// stored version either way lets the next write replace the broken
	// document instead of conflicting forever.
	_ = json.Unmarshal(env.Data, out)
	return env.Version, nil
}

// Put unconditionally replaces the document at key, bumping its version
func (s *DocumentStore) Put(ctx context.Context, key string, doc any) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	cur, err := s.version(ctx, key)
	if err != nil {
		return err
	}
	return s.write(ctx, key, doc, cur+1)
}

// CheckAndPut replaces the document at key only if its stored version still
// equals expected, returning ErrVersionConflict otherwise
func (s *DocumentStore) CheckAndPut(ctx context.Context, key string, doc any, expected int64) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	cur, err := s.version(ctx, key)
	if err != nil {
		return err
	}
	if cur != expected {
		return fmt.Errorf("%w: %s at version %d, expected %d", ErrVersionConflict, key, cur, expected)
	}
	return s.write(ctx, key, doc, expected+1)
}

// WithRetry runs fn up to attempts times, stopping on the first outcome
// that is not a version conflict. fn must re-read the document itself.
func (s *DocumentStore) WithRetry(attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return err
}

func (s *DocumentStore) version(ctx context.Context, key string) (int64, error) {
	data, err := s.objects.GetObject(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load document %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return 0, nil
	}
	return env.Version, nil
}

func (s *DocumentStore) write(ctx context.Context, key string, doc any, version int64) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document %s: %w", key, err)
	}
	body, err := json.Marshal(envelope{Version: version, Data: raw})
	if err != nil {
		return fmt.Errorf("failed to serialize envelope %s: %w", key, err)
	}
	if err := s.objects.PutObject(ctx, key, body, "application/json"); err != nil {
		return fmt.Errorf("failed to store document %s: %w", key, err)
	}
	return nil
}
