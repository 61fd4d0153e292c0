package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PersistedMessage is one row of the durable queue lane.
type PersistedMessage struct {
	UniqueID    string
	Action      string
	PayloadJSON string
	Lane        string
	EnqueueTime time.Time
	Attempts    int
}

// SaveQueuedMessage writes a message before it is acknowledged to the
// enqueuer. Replacing on unique_id keeps retried writes idempotent.
func (s *Store) SaveQueuedMessage(m PersistedMessage) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO message_queue (unique_id, action, payload_json, lane, enqueue_time, attempts)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.UniqueID, m.Action, m.PayloadJSON, m.Lane, m.EnqueueTime.UTC().Format(time.RFC3339Nano), m.Attempts,
	)
	if err != nil {
		return fmt.Errorf("save queued message %s: %w", m.UniqueID, err)
	}
	return nil
}

// UpdateMessageAttempts records a delivery attempt.
func (s *Store) UpdateMessageAttempts(uniqueID string, attempts int) error {
	_, err := s.db.Exec(`UPDATE message_queue SET attempts = ? WHERE unique_id = ?`, attempts, uniqueID)
	if err != nil {
		return fmt.Errorf("update attempts for %s: %w", uniqueID, err)
	}
	return nil
}

// DeleteQueuedMessage removes a message once its response has been handled
// or its attempts are exhausted.
func (s *Store) DeleteQueuedMessage(uniqueID string) error {
	_, err := s.db.Exec(`DELETE FROM message_queue WHERE unique_id = ?`, uniqueID)
	if err != nil {
		return fmt.Errorf("delete queued message %s: %w", uniqueID, err)
	}
	return nil
}

// LoadQueuedMessages returns all persisted messages in insertion order, for
// replay after a restart.
func (s *Store) LoadQueuedMessages() ([]PersistedMessage, error) {
	rows, err := s.db.Query(
		`SELECT unique_id, action, payload_json, lane, enqueue_time, attempts
		 FROM message_queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("load queued messages: %w", err)
	}
	defer rows.Close()

	var out []PersistedMessage
	for rows.Next() {
		var m PersistedMessage
		var enqueued string
		if err := rows.Scan(&m.UniqueID, &m.Action, &m.PayloadJSON, &m.Lane, &enqueued, &m.Attempts); err != nil {
			return nil, fmt.Errorf("scan queued message: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, enqueued)
		if err != nil {
			return nil, fmt.Errorf("parse enqueue time of %s: %w", m.UniqueID, err)
		}
		m.EnqueueTime = t
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueuedMessageCount reports how many messages are persisted.
func (s *Store) QueuedMessageCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM message_queue`).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("count queued messages: %w", err)
	}
	return n, nil
}
