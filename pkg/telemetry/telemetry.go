// Package telemetry persists PII-safe routing decisions: hashes,
// lengths and metrics, never raw user text.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Decision is the persisted record of one orchestration run.
type Decision struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	MessageHash     string    `json:"message_hash"`
	MessageLength   int       `json:"message_length"`
	Complexity      int       `json:"complexity"`
	Category        string    `json:"category"`
	Model           string    `json:"model"`
	Cost            float64   `json:"cost"`
	Success         bool      `json:"success"`
	RetryCount      int       `json:"retry_count"`
	LatencyMillis   int64     `json:"latency_ms"`
	ConversationID  string    `json:"conversation_id,omitempty"`
	Strategy        string    `json:"strategy,omitempty"`
	ValidationScore *int      `json:"validation_score,omitempty"`
}

// Store persists routing decisions. Implementations are best-effort
// collaborators; callers log and swallow failures.
type Store interface {
	Create(ctx context.Context, decision Decision) error
}

// HashMessage returns the SHA-256 hex digest of the raw message.
func HashMessage(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

// NoopStore discards every decision.
type NoopStore struct{}

// Create implements Store.
func (NoopStore) Create(context.Context, Decision) error { return nil }
