// Package audit records admin actions (imports, deletions, restores) in an
// append-only table for later review.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Logger struct {
	pool *pgxpool.Pool
}

func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

type Entry struct {
	Action     string
	EntityType string
	EntityUUID *uuid.UUID
	RequestID  string
	Metadata   map[string]any
}

func (l *Logger) Log(ctx context.Context, entry Entry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}

	var requestID *string
	if entry.RequestID != "" {
		requestID = &entry.RequestID
	}

	_, err := l.pool.Exec(ctx,
		`INSERT INTO audit_logs (action, entity_type, entity_uuid, request_id, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.Action, entry.EntityType, entry.EntityUUID, requestID, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
