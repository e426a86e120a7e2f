// Package persistence implements the write-behind pipeline: a
// multi-producer/single-consumer queue feeding one background writer that
// durably records every served answer without blocking the request path.
package persistence

import (
	"time"

	"github.com/google/uuid"
)

// Record is a point-in-time copy of a served answer. It is created at store
// time, consumed exactly once by the writer, then discarded.
type Record struct {
	ID          string
	UserID      string
	NamespaceID string
	Question    string
	Answer      []byte
	EnqueuedAt  time.Time
}

// NewRecord builds a Record with a fresh ID and enqueue timestamp. The
// answer bytes are copied so later buffer reuse cannot corrupt the record.
func NewRecord(userID, namespaceID, question string, answer []byte) Record {
	return Record{
		ID:          uuid.New().String(),
		UserID:      userID,
		NamespaceID: namespaceID,
		Question:    question,
		Answer:      append([]byte(nil), answer...),
		EnqueuedAt:  time.Now(),
	}
}
