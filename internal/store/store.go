// Package store is the single owner of the record collection. Every write
// goes through a per-record lock, bumps the record version and republishes
// the full collection to subscribers.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pvflow/internal/model"
	"pvflow/internal/repository"

	"github.com/rs/zerolog/log"
)

var (
	ErrPersistence     = errors.New("falha ao acessar o armazenamento")
	ErrRecordNotFound  = errors.New("registro nao encontrado")
	ErrVersionConflict = errors.New("registro alterado por outra sessao, recarregue antes de salvar")
)

// ConflictMode decides what happens when a write is based on an old version.
type ConflictMode string

const (
	// LastWriteWins accepts every write; the later save replaces the earlier.
	LastWriteWins ConflictMode = "last_write_wins"
	// Optimistic rejects writes whose base version is not the stored one.
	Optimistic ConflictMode = "optimistic"
)

func ParseConflictMode(s string) ConflictMode {
	if ConflictMode(s) == Optimistic {
		return Optimistic
	}
	return LastWriteWins
}

// MutateFunc computes the next state of a record from the stored one
// (nil when the record does not exist yet). It returns the record to write
// and the audit events the write adds.
type MutateFunc func(current *model.ProcessRecord) (model.ProcessRecord, []model.AuditEvent, error)

type Store struct {
	repo   repository.RecordRepository
	audit  repository.AuditRepository
	locker Locker
	bus    Broadcaster
	mode   ConflictMode

	mu      sync.Mutex
	subs    map[int]func([]model.ProcessRecord)
	nextSub int
}

type Option func(*Store)

func WithLocker(l Locker) Option                    { return func(s *Store) { s.locker = l } }
func WithBroadcaster(b Broadcaster) Option          { return func(s *Store) { s.bus = b } }
func WithConflictMode(m ConflictMode) Option        { return func(s *Store) { s.mode = m } }
func WithAudit(a repository.AuditRepository) Option { return func(s *Store) { s.audit = a } }

func New(repo repository.RecordRepository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		locker: NewLocalLocker(),
		mode:   LastWriteWins,
		subs:   make(map[int]func([]model.ProcessRecord)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Mode() ConflictMode { return s.mode }

func (s *Store) List(ctx context.Context) ([]model.ProcessRecord, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return recs, nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.ProcessRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return rec, nil
}

// Mutate runs fn on the stored record while holding its lock and writes the
// result. baseVersion is the version the caller's draft was based on; it is
// compared only in Optimistic mode.
func (s *Store) Mutate(ctx context.Context, id string, baseVersion int64, fn MutateFunc) (model.ProcessRecord, error) {
	return s.mutate(ctx, id, s.mode == Optimistic, baseVersion, fn)
}

// MutateLatest is Mutate without the version check: fn always runs on the
// stored record. For server-side edits that carry no client draft.
func (s *Store) MutateLatest(ctx context.Context, id string, fn MutateFunc) (model.ProcessRecord, error) {
	return s.mutate(ctx, id, false, 0, fn)
}

func (s *Store) mutate(ctx context.Context, id string, checkVersion bool, baseVersion int64, fn MutateFunc) (model.ProcessRecord, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return model.ProcessRecord{}, err
	}
	defer unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.ProcessRecord{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if current != nil && checkVersion && baseVersion != current.Version {
		return model.ProcessRecord{}, ErrVersionConflict
	}

	next, events, err := fn(current)
	if err != nil {
		return model.ProcessRecord{}, err
	}
	if current != nil {
		next.Version = current.Version + 1
	} else {
		next.Version = 1
	}
	if err := s.write(ctx, next, events); err != nil {
		return model.ProcessRecord{}, err
	}
	return next, nil
}

// Upsert replaces or inserts rec by id without a read-modify-write step.
// Used by imports and seeding.
func (s *Store) Upsert(ctx context.Context, rec model.ProcessRecord) (model.ProcessRecord, error) {
	return s.mutate(ctx, rec.ID, false, 0, func(*model.ProcessRecord) (model.ProcessRecord, []model.AuditEvent, error) {
		return rec.Clone(), rec.AuditTrail, nil
	})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if s.audit != nil {
		if err := s.audit.DeleteByRecord(ctx, id); err != nil {
			log.Warn().Err(err).Str("record_id", id).Msg("store: falha ao remover eventos de auditoria")
		}
	}
	s.announce(ctx, Change{RecordID: id, Kind: ChangeDelete})
	return nil
}

func (s *Store) write(ctx context.Context, rec model.ProcessRecord, events []model.AuditEvent) error {
	if err := s.repo.Put(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	// The trail inside the record is authoritative; the mirror table only
	// serves cross-record search.
	if s.audit != nil && len(events) > 0 {
		if err := s.audit.Append(ctx, rec.ID, rec.PVCode, events); err != nil {
			log.Warn().Err(err).Str("record_id", rec.ID).Msg("store: falha ao espelhar auditoria")
		}
	}
	s.announce(ctx, Change{RecordID: rec.ID, Kind: ChangeUpsert, Version: rec.Version})
	return nil
}

func (s *Store) announce(ctx context.Context, c Change) {
	if s.bus != nil {
		if err := s.bus.Publish(ctx, c); err != nil {
			log.Warn().Err(err).Str("record_id", c.RecordID).Msg("store: falha ao publicar mudanca")
		}
	}
	s.notify(ctx)
}

// Subscribe registers fn to receive the full collection after every change,
// local or remote. The returned function unsubscribes.
func (s *Store) Subscribe(fn func([]model.ProcessRecord)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(ctx context.Context) {
	s.mu.Lock()
	fns := make([]func([]model.ProcessRecord), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	recs, err := s.repo.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("store: falha ao recarregar colecao para assinantes")
		return
	}
	for _, fn := range fns {
		fn(cloneAll(recs))
	}
}

// Run relays changes made by other processes to local subscribers. It
// blocks until ctx is done; without a broadcaster it returns immediately.
func (s *Store) Run(ctx context.Context) {
	if s.bus == nil {
		return
	}
	log.Info().Str("instance", s.bus.Instance()).Msg("store: ouvindo mudancas remotas")
	s.bus.Listen(ctx, func(c Change) {
		log.Debug().Str("record_id", c.RecordID).Str("kind", string(c.Kind)).Msg("store: mudanca remota")
		s.notify(ctx)
	})
}

func cloneAll(recs []model.ProcessRecord) []model.ProcessRecord {
	out := make([]model.ProcessRecord, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}
