package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStoreClosed is returned by store operations after Close.
var ErrStoreClosed = errors.New("store is closed")

// DurableStore is the write contract with the external durable store. The
// pipeline depends only on append; schema and administration belong to the
// backend.
type DurableStore interface {
	// Append durably records one served answer.
	Append(ctx context.Context, rec Record) error

	// Ping checks if the store is healthy.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Conversation is the relational row behind the append contract, one row per
// served answer.
type Conversation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"size:255;not null;index" json:"user_id"`
	NamespaceID string    `gorm:"size:255;index" json:"namespace_id"`
	Question    string    `gorm:"type:text;not null" json:"question"`
	Answer      string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName pins the table name.
func (Conversation) TableName() string { return "conversations" }

// GormStore is the relational DurableStore. It works against any of the
// configured gorm dialects.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewGormStore creates a GormStore and migrates the conversations table.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.AutoMigrate(&Conversation{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "gorm_store")),
	}, nil
}

// Append inserts one conversation row.
func (s *GormStore) Append(ctx context.Context, rec Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	row := Conversation{
		UserID:      rec.UserID,
		NamespaceID: rec.NamespaceID,
		Question:    rec.Question,
		Answer:      string(rec.Answer),
		CreatedAt:   rec.EnqueuedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append conversation: %w", err)
	}
	return nil
}

// Ping checks the underlying connection.
func (s *GormStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection. Idempotent.
func (s *GormStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// MemoryStore is an in-process DurableStore for development and tests. Data
// is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append records the record in memory.
func (s *MemoryStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.records = append(s.records, rec)
	return nil
}

// Ping reports whether the store is open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Records returns a copy of everything appended so far.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}
