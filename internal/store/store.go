// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package store implements the durable killmail ingestion store on BadgerDB.
//
// Key layout:
//
//	km:<system>:<unix>:<id>  -> killmail JSON, ordered per system by time
//	kmid:<id>                -> primary key bytes, dedup index
//	rollup:<system>:<hour>   -> hourly rollup JSON, survives detail pruning
//
// The feed poller is the single insert writer; the retention pruner is the
// single delete writer. Reads run concurrently against Badger snapshots and
// never block on in-progress writes beyond Badger's own short commit path.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/gatewatch/internal/killmail"
	"github.com/tomtom215/gatewatch/internal/logging"
	"github.com/tomtom215/gatewatch/internal/metrics"
)

const (
	killKeyPrefix   = "km:"
	killIDKeyPrefix = "kmid:"
	rollupKeyPrefix = "rollup:"
)

// ErrClosed is returned for operations on a closed store.
var ErrClosed = errors.New("store is closed")

// InsertResult indicates the outcome of an idempotent insert.
type InsertResult int

const (
	// Inserted means the killmail was stored for the first time.
	Inserted InsertResult = iota
	// AlreadyExists means a killmail with the same ID was ingested before
	// and the call was a no-op.
	AlreadyExists
)

// ShipClassifier answers ship-class membership questions for rollup
// accounting. Satisfied by *config.ShipClassTable.
type ShipClassifier interface {
	IsCapsule(shipTypeID int64) bool
}

// Store is the durable, indexed killmail store with bounded retention.
type Store struct {
	db         *badger.DB
	classifier ShipClassifier
}

// Open opens (or creates) the store at the given path.
// Storage failures here are fatal to the engine; the caller is expected to
// exit rather than continue with an inconsistent store.
func Open(path string, classifier ShipClassifier) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty; we log transitions ourselves

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", path, err)
	}

	logging.Info().Str("path", path).Msg("killmail store opened")
	return &Store{db: db, classifier: classifier}, nil
}

// NewWithDB wraps an existing Badger handle. Used by tests.
func NewWithDB(db *badger.DB, classifier ShipClassifier) *Store {
	return &Store{db: db, classifier: classifier}
}

// Insert stores a killmail, keyed for per-system time-range scans.
// Idempotent on killmail ID: re-inserting an already-stored ID returns
// AlreadyExists without touching the row or the rollups.
func (s *Store) Insert(km *killmail.Killmail) (InsertResult, error) {
	start := time.Now()
	defer func() {
		metrics.StoreOperationDuration.WithLabelValues("insert").Observe(time.Since(start).Seconds())
	}()

	result := Inserted
	err := s.db.Update(func(txn *badger.Txn) error {
		idKey := killIDKey(km.ID)
		if _, err := txn.Get(idKey); err == nil {
			result = AlreadyExists
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("dedup lookup: %w", err)
		}

		primary := killKey(km.SolarSystemID, km.Time, km.ID)
		data, err := json.Marshal(km)
		if err != nil {
			return fmt.Errorf("marshal killmail %d: %w", km.ID, err)
		}
		if err := txn.Set(primary, data); err != nil {
			return fmt.Errorf("set killmail %d: %w", km.ID, err)
		}
		if err := txn.Set(idKey, primary); err != nil {
			return fmt.Errorf("set dedup index %d: %w", km.ID, err)
		}

		// Rollups are updated incrementally at ingest so detail pruning
		// loses no aggregate information.
		return s.bumpRollup(txn, km)
	})
	if err != nil {
		return Inserted, err
	}

	switch result {
	case Inserted:
		metrics.KillmailsIngested.Inc()
	case AlreadyExists:
		metrics.KillmailsDuplicate.Inc()
	}
	return result, nil
}

// QuerySystemSince returns all stored killmails for a system with
// timestamps at or after since, ordered oldest first.
func (s *Store) QuerySystemSince(systemID int64, since time.Time) ([]killmail.Killmail, error) {
	start := time.Now()
	defer func() {
		metrics.StoreOperationDuration.WithLabelValues("query").Observe(time.Since(start).Seconds())
	}()

	var kills []killmail.Killmail
	prefix := []byte(killKeyPrefix + encodeSystem(systemID) + ":")
	seek := []byte(killKeyPrefix + encodeSystem(systemID) + ":" + encodeUnix(since) + ":")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var km killmail.Killmail
				if err := json.Unmarshal(val, &km); err != nil {
					return fmt.Errorf("unmarshal killmail at %s: %w", it.Item().Key(), err)
				}
				kills = append(kills, km)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return kills, nil
}

// QueryAllSince returns stored killmails across all systems with timestamps
// at or after since. Used by the watchlist sweep; ordering is per system by
// time, not globally chronological.
func (s *Store) QueryAllSince(since time.Time) ([]killmail.Killmail, error) {
	start := time.Now()
	defer func() {
		metrics.StoreOperationDuration.WithLabelValues("query").Observe(time.Since(start).Seconds())
	}()

	cutoff := since.UTC().Unix()
	var kills []killmail.Killmail

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(killKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ts, _, err := parseKillKey(it.Item().Key())
			if err != nil {
				return err
			}
			if ts < cutoff {
				continue
			}
			err = it.Item().Value(func(val []byte) error {
				var km killmail.Killmail
				if err := json.Unmarshal(val, &km); err != nil {
					return fmt.Errorf("unmarshal killmail at %s: %w", it.Item().Key(), err)
				}
				kills = append(kills, km)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return kills, nil
}

// Prune removes killmail detail rows strictly older than olderThan across
// all systems and returns the number removed. Hourly rollups are untouched;
// they were already updated at ingest time.
func (s *Store) Prune(olderThan time.Time) (int, error) {
	start := time.Now()
	defer func() {
		metrics.StoreOperationDuration.WithLabelValues("prune").Observe(time.Since(start).Seconds())
	}()

	// Collect expired keys under a read snapshot first, then delete in a
	// short write transaction. Keeps the exclusive section bounded.
	type victim struct {
		primary []byte
		id      int64
	}
	var expired []victim

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(killKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		cutoff := olderThan.UTC().Unix()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, id, err := parseKillKey(key)
			if err != nil {
				return err
			}
			if ts < cutoff {
				expired = append(expired, victim{primary: key, id: id})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, v := range expired {
		if err := wb.Delete(v.primary); err != nil {
			return 0, fmt.Errorf("delete killmail %d: %w", v.id, err)
		}
		if err := wb.Delete(killIDKey(v.id)); err != nil {
			return 0, fmt.Errorf("delete dedup index %d: %w", v.id, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush prune batch: %w", err)
	}

	metrics.KillmailsPruned.Add(float64(len(expired)))
	return len(expired), nil
}

// Close closes the underlying Badger database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger store: %w", err)
	}
	return nil
}

// killKey builds the primary key for a killmail.
func killKey(systemID int64, ts time.Time, id int64) []byte {
	return []byte(killKeyPrefix + encodeSystem(systemID) + ":" + encodeUnix(ts) + ":" + strconv.FormatInt(id, 10))
}

// killIDKey builds the dedup index key for a killmail ID.
func killIDKey(id int64) []byte {
	return []byte(killIDKeyPrefix + strconv.FormatInt(id, 10))
}

// encodeSystem zero-pads a system ID so keys sort lexicographically.
func encodeSystem(systemID int64) string {
	return fmt.Sprintf("%010d", systemID)
}

// encodeUnix zero-pads a UTC unix timestamp so keys sort chronologically.
func encodeUnix(ts time.Time) string {
	return fmt.Sprintf("%010d", ts.UTC().Unix())
}

// parseKillKey extracts the timestamp and killmail ID from a primary key.
func parseKillKey(key []byte) (ts int64, id int64, err error) {
	parts := strings.Split(strings.TrimPrefix(string(key), killKeyPrefix), ":")
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("malformed store key %q", key)
	}
	ts, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed timestamp in store key %q: %w", key, err)
	}
	id, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed id in store key %q: %w", key, err)
	}
	return ts, id, nil
}
