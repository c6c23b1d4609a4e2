// Package kv implements store.Store on an embedded Badger key-value database.
package kv

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
)

// Key prefixes. Each entity keeps its secondary indexes under its own prefix.
const (
	tagPrefix         = "tag:"      // tag:{id} → Tag JSON
	lineagePrefix     = "lineage:"  // lineage:{user}|{parent}|{child} → TagLineage JSON
	questionPrefix    = "question:" // question:{id} → Question JSON
	questionTagPrefix = "qtag:"     // qtag:{question}|{tag} → QuestionTag JSON
	schedulePrefix    = "schedule:" // schedule:{id} → scheduleRecord JSON
	scheduleSeqKey    = "seq:schedules"
)

// sep joins composite key parts. Generated ids never contain it.
const sep = "|"

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// scheduleRecord is a schedule plus its insertion sequence, which orders
// schedules created at the same instant.
type scheduleRecord struct {
	domain.Schedule
	Seq uint64 `json:"seq"`
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	seq    *badger.Sequence

	tags         *Entity[domain.Tag]
	lineage      *Entity[domain.TagLineage]
	questions    *Entity[domain.Question]
	questionTags *Entity[domain.QuestionTag]
	schedules    *Entity[scheduleRecord]
}

// Open opens (or creates) a Badger database at path. An empty path opens
// an in-memory database, which tests use.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes so a crash cannot lose acknowledged schedules
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte(scheduleSeqKey), 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open schedule sequence: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{
		db:     db,
		logger: logger,
		seq:    seq,
	}
	s.initEntities()

	logger.Info("Badger database opened", "path", path, "in_memory", path == "")

	return s, nil
}

func (s *Store) initEntities() {
	s.tags = NewEntity[domain.Tag](s.db, tagPrefix).
		WithUniqueIndex("name", func(t *domain.Tag) []string {
			return []string{t.UserID + sep + t.Name}
		}).
		WithListIndex("user", func(t *domain.Tag) []string {
			return []string{t.UserID}
		})

	s.lineage = NewEntity[domain.TagLineage](s.db, lineagePrefix).
		WithListIndex("user", func(l *domain.TagLineage) []string {
			return []string{l.UserID}
		})

	s.questions = NewEntity[domain.Question](s.db, questionPrefix).
		WithListIndex("user", func(q *domain.Question) []string {
			return []string{q.UserID}
		})

	s.questionTags = NewEntity[domain.QuestionTag](s.db, questionTagPrefix).
		WithListIndex("tag", func(qt *domain.QuestionTag) []string {
			return []string{qt.TagID}
		})

	s.schedules = NewEntity[scheduleRecord](s.db, schedulePrefix).
		WithListIndex("question", func(r *scheduleRecord) []string {
			return []string{r.UserID + sep + r.QuestionID}
		})
}

// Close releases the schedule sequence and closes the database. Closing
// an already closed store is a no-op.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	s.logger.Info("Closing database connection")
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("Failed to release schedule sequence", "error", err)
	}
	return s.db.Close()
}

// Ping verifies the database is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("badger db is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}
