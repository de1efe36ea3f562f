// Package audit keeps an append-only log of raw language-model responses and
// the repair steps applied to them, so a bad extraction can always be traced
// back to the exact payload the backend produced.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "responses"

// Entry is one recorded backend response.
type Entry struct {
	Backend   string    `json:"backend"`
	Response  string    `json:"response"`
	Repairs   []string  `json:"repairs,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is a bbolt-backed response log.
type Log struct {
	db *bbolt.DB
}

// Open opens (or creates) the audit log at path.
func Open(path string) (*Log, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit bucket: %w", err)
	}

	return &Log{db: db}, nil
}

// Record appends a backend response. Implements llm.Recorder.
func (l *Log) Record(backend, response string, repairs []string) error {
	entry := Entry{
		Backend:   backend,
		Response:  response,
		Repairs:   repairs,
		CreatedAt: time.Now(),
	}

	return l.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling audit entry: %w", err)
		}
		// Zero-padded nanosecond key keeps iteration chronological.
		key := fmt.Sprintf("%020d", entry.CreatedAt.UnixNano())
		return bucket.Put([]byte(key), data)
	})
}

// List returns all recorded entries in chronological order.
func (l *Log) List() ([]*Entry, error) {
	entries := make([]*Entry, 0)
	err := l.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling audit entry: %w", err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
