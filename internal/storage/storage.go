// Package storage provides a persistent score journal for the anomaly
// engine. It uses BoltDB as the underlying storage engine to keep scored
// rows and detected anomaly events across runs, so alert history survives
// process restarts.
//
// Records are keyed "symbol_unixnano" for efficient time-range queries.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	scoresBucket = "scores" // Bucket for scored rows
	eventsBucket = "events" // Bucket for detected anomaly events
)

// ScoreRecord is one scored trading period.
type ScoreRecord struct {
	Symbol      string    `json:"symbol"`
	Date        time.Time `json:"date"`
	Probability float64   `json:"probability"`
	Prediction  int       `json:"prediction"`
	Severity    float64   `json:"severity"`
	Return      float64   `json:"return"`
}

// EventRecord is one detected anomaly, as summarized in reports.
type EventRecord struct {
	Symbol         string    `json:"symbol"`
	Date           time.Time `json:"date"`
	Return         float64   `json:"return"`
	RelativeVolume float64   `json:"relative_volume"`
	Severity       float64   `json:"severity"`
}

// Store is a BoltDB-backed journal of scores and anomaly events.
type Store struct {
	db *bbolt.DB
}

// New opens the journal under dataPath and creates its buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "anomaly-journal.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(scoresBucket)); err != nil {
			return fmt.Errorf("create scores bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(eventsBucket)); err != nil {
			return fmt.Errorf("create events bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreScore stores one scored row.
func (s *Store) StoreScore(rec ScoreRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(scoresBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal score record: %w", err)
		}

		key := fmt.Sprintf("%s_%d", rec.Symbol, rec.Date.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// StoreEvent stores one detected anomaly event.
func (s *Store) StoreEvent(ev EventRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(eventsBucket))

		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event record: %w", err)
		}

		key := fmt.Sprintf("%s_%d", ev.Symbol, ev.Date.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// GetScores retrieves scored rows for a symbol within a time range,
// inclusive of both ends, ordered by date.
func (s *Store) GetScores(symbol string, start, end time.Time) ([]ScoreRecord, error) {
	var records []ScoreRecord
	err := s.rangeScan(scoresBucket, symbol, start, end, func(data []byte) error {
		var rec ScoreRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// GetEvents retrieves anomaly events for a symbol within a time range,
// inclusive of both ends, ordered by date.
func (s *Store) GetEvents(symbol string, start, end time.Time) ([]EventRecord, error) {
	var records []EventRecord
	err := s.rangeScan(eventsBucket, symbol, start, end, func(data []byte) error {
		var rec EventRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// rangeScan walks a bucket's keys for one symbol between start and end
// using a BoltDB cursor. Malformed records are skipped.
func (s *Store) rangeScan(bucketName, symbol string, start, end time.Time, visit func([]byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		c := b.Cursor()

		prefix := []byte(symbol + "_")
		startKey := []byte(fmt.Sprintf("%s_%d", symbol, start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%s_%d", symbol, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			if err := visit(v); err != nil {
				continue // Skip malformed records
			}
		}
		return nil
	})
}
