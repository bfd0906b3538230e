// Package store owns the in-memory capsule collection and keeps it mirrored
// to a durable key-value layer.
package store

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/errors"
)

// Durable keys.
const (
	KeyCapsules = "timeCapsules"
	KeyPlan     = "userPlan"
	KeyVisited  = "hasVisited"
)

// KeepCorruptBackups is how many corrupt collection backups are retained.
const KeepCorruptBackups = 3

// DefaultConfirmTTL is how long a confirmation intent stays valid.
const DefaultConfirmTTL = 5 * time.Minute

// KV is the durable string map the store persists to.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// backupPruner is implemented by KVs that can enumerate and remove keys.
type backupPruner interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Options configures a Store. Zero values select defaults.
type Options struct {
	Logger     *slog.Logger
	ConfirmTTL time.Duration
	Now        func() time.Time
}

// Store is the single owner of the capsule collection.
// All methods are safe for concurrent use.
type Store struct {
	kv     KV
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	capsules []*capsule.Capsule
	intents  map[string]*Intent

	persistErr error
}

// New creates an empty store. Call Load to read persisted state.
func New(kv KV, opts Options) *Store {
	s := &Store{
		kv:      kv,
		logger:  opts.Logger,
		ttl:     opts.ConfirmTTL,
		now:     opts.Now,
		intents: make(map[string]*Intent),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultConfirmTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Load replaces the in-memory collection with the persisted one.
// It never fails: unreadable or corrupt data yields an empty collection.
func (s *Store) Load(ctx context.Context) LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(ctx, KeyCapsules)
	if err != nil {
		s.logger.Error("failed to read capsules", "error", err)
		s.capsules = nil
		return LoadResult{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		s.capsules = nil
		return LoadResult{Version: CurrentSchemaVersion}
	}

	caps, res, err := decodeCollection(raw, s.logger)
	if err != nil {
		s.logger.Error("stored capsules are corrupt; starting empty", "error", err)
		s.backupCorrupt(ctx, raw)
		s.capsules = nil
		return LoadResult{Corrupt: true}
	}

	s.capsules = caps
	if res.Migrated {
		s.logger.Info("migrated stored capsules",
			"from_version", res.Version, "to_version", CurrentSchemaVersion, "count", len(caps))
		s.persist(ctx)
	}
	return res
}

// backupCorrupt keeps a copy of an unreadable collection. Best effort.
func (s *Store) backupCorrupt(ctx context.Context, raw string) {
	key := corruptPrefix + strconv.FormatInt(s.now().Unix(), 10)
	if err := s.kv.Put(ctx, key, raw); err != nil {
		s.logger.Warn("failed to back up corrupt capsules", "key", key, "error", err)
		return
	}
	s.logger.Info("backed up corrupt capsules", "key", key)
	s.pruneBackups(ctx)
}

const corruptPrefix = KeyCapsules + ".corrupt."

// pruneBackups drops all but the newest KeepCorruptBackups backups when the
// KV can list keys.
func (s *Store) pruneBackups(ctx context.Context) {
	p, ok := s.kv.(backupPruner)
	if !ok {
		return
	}
	keys, err := p.Keys(ctx, corruptPrefix)
	if err != nil {
		s.logger.Warn("failed to list corrupt backups", "error", err)
		return
	}
	// Unix-second suffixes of equal length sort chronologically
	for len(keys) > KeepCorruptBackups {
		if err := p.Delete(ctx, keys[0]); err != nil {
			s.logger.Warn("failed to remove old corrupt backup", "key", keys[0], "error", err)
			return
		}
		s.logger.Debug("removed old corrupt backup", "key", keys[0])
		keys = keys[1:]
	}
}

// persist writes the full collection. Caller holds s.mu.
// Failures are logged and remembered; memory stays authoritative.
func (s *Store) persist(ctx context.Context) {
	data, err := encodeCollection(s.capsules)
	if err == nil {
		err = s.kv.Put(ctx, KeyCapsules, data)
	}
	s.persistErr = err
	if err != nil {
		s.logger.Error("failed to persist capsules", "count", len(s.capsules), "error", err)
	}
}

// Now returns the store's clock reading. Operations that derive display
// state use it so an injected clock applies everywhere.
func (s *Store) Now() time.Time {
	return s.now()
}

// LastPersistError returns the most recent persistence failure, or nil if
// the last write succeeded.
func (s *Store) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Append adds a capsule at the end of the collection and persists.
func (s *Store) Append(ctx context.Context, c *capsule.Capsule) error {
	if c == nil || c.ID == "" || c.Delivery == nil {
		return errors.NewInvalidRequest("capsule must have an id and a delivery method")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(c.ID) >= 0 {
		return errors.NewConflict("capsule " + c.ID + " already exists")
	}
	s.capsules = append(s.capsules, c.Clone())
	s.persist(ctx)
	s.logger.Debug("capsule appended", "id", c.ID, "method", c.Method())
	return nil
}

// Seal marks a capsule sealed. Sealing an already sealed capsule is a no-op.
func (s *Store) Seal(ctx context.Context, id string) (*capsule.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealLocked(ctx, id)
}

func (s *Store) sealLocked(ctx context.Context, id string) (*capsule.Capsule, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, errors.NewNotFound(id)
	}
	if s.capsules[i].IsSealed {
		return s.capsules[i].Clone(), nil
	}

	sealed := s.capsules[i].Clone()
	sealed.IsSealed = true
	s.capsules[i] = sealed
	s.persist(ctx)
	s.logger.Info("capsule sealed", "id", id, "status", sealed.StatusLabel())
	return sealed.Clone(), nil
}

// Delete removes an unsealed capsule.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(ctx, id)
}

func (s *Store) deleteLocked(ctx context.Context, id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return errors.NewNotFound(id)
	}
	if s.capsules[i].IsSealed {
		return errors.NewSealed(id)
	}

	s.capsules = append(s.capsules[:i], s.capsules[i+1:]...)
	s.persist(ctx)
	s.logger.Info("capsule deleted", "id", id)
	return nil
}

// Edit lists the mutable fields of an unsealed capsule. Nil means unchanged.
type Edit struct {
	RecipientName *string
	Message       *string
}

// Update applies an edit to an unsealed capsule and returns the new state.
func (s *Store) Update(ctx context.Context, id string, edit Edit) (*capsule.Capsule, error) {
	if edit.RecipientName == nil && edit.Message == nil {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, errors.NewNotFound(id)
	}
	if s.capsules[i].IsSealed {
		return nil, errors.NewSealed(id)
	}

	updated := s.capsules[i].Clone()
	if edit.RecipientName != nil {
		name := capsule.CleanField(*edit.RecipientName)
		if name == "" {
			return nil, errors.NewMissingFields()
		}
		updated.RecipientName = name
	}
	if edit.Message != nil {
		msg := capsule.CleanField(*edit.Message)
		if msg == "" {
			return nil, errors.NewMissingFields()
		}
		updated.Message = msg
	}

	s.capsules[i] = updated
	s.persist(ctx)
	return updated.Clone(), nil
}

// Get returns a copy of the capsule with the given id.
func (s *Store) Get(id string) (*capsule.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, errors.NewNotFound(id)
	}
	return s.capsules[i].Clone(), nil
}

// List returns copies sorted ascending by delivery date. Ties keep
// insertion order. The stored order is not changed.
func (s *Store) List() []*capsule.Capsule {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DeliveryDate.Before(out[j].DeliveryDate)
	})
	return out
}

// All returns copies in insertion order.
func (s *Store) All() []*capsule.Capsule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*capsule.Capsule, len(s.capsules))
	for i, c := range s.capsules {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of capsules.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.capsules)
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.capsules {
		if c.ID == id {
			return i
		}
	}
	return -1
}
