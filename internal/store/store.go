// Package store persists estimation results and observation snapshots
// to BoltDB so model drift can be analyzed offline against what the
// chain actually did.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	estimatesBucket = "estimates" // estimation requests and results
	snapshotsBucket = "snapshots" // raw observation windows
)

// Estimate is one recorded estimation.
type Estimate struct {
	Target       uint16  `json:"target"`
	FeeRate      float32 `json:"feeRate"`
	Timestamp    uint32  `json:"timestamp"`
	LastBlockTS  uint32  `json:"lastBlockTs"`
	Observations int     `json:"observations"`
}

// Snapshot is the raw observation window an estimation ran against.
type Snapshot struct {
	Timestamp uint32    `json:"timestamp"`
	FeeRates  []float64 `json:"feeRates"`
}

type Store struct {
	db *bbolt.DB
}

// New opens (creating if needed) the database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "feemodel-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(estimatesBucket)); err != nil {
			return fmt.Errorf("create estimates bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(snapshotsBucket)); err != nil {
			return fmt.Errorf("create snapshots bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreEstimate records one estimation, keyed by target and timestamp
// for range queries.
func (s *Store) StoreEstimate(e Estimate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(estimatesBucket))

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal estimate: %w", err)
		}

		key := fmt.Sprintf("%d_%010d", e.Target, e.Timestamp)
		return b.Put([]byte(key), data)
	})
}

// StoreSnapshot records the observation window behind an estimation.
func (s *Store) StoreSnapshot(sn Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(snapshotsBucket))

		data, err := json.Marshal(sn)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}

		key := fmt.Sprintf("%010d", sn.Timestamp)
		return b.Put([]byte(key), data)
	})
}

// EstimatesInRange returns the recorded estimates for one block target
// between start and end inclusive, ordered by timestamp.
func (s *Store) EstimatesInRange(target uint16, start, end uint32) ([]Estimate, error) {
	var out []Estimate

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(estimatesBucket))
		c := b.Cursor()

		prefix := []byte(fmt.Sprintf("%d_", target))
		startKey := []byte(fmt.Sprintf("%d_%010d", target, start))
		endKey := []byte(fmt.Sprintf("%d_%010d", target, end))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			var e Estimate
			if err := json.Unmarshal(v, &e); err != nil {
				continue // skip malformed records
			}
			out = append(out, e)
		}
		return nil
	})

	return out, err
}
