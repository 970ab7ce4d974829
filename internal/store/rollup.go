// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

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
	"github.com/tomtom215/gatewatch/internal/metrics"
)

// HourlyRollup is the coarse per-system aggregate retained long after
// detail rows are pruned. Collaborators display it while the real-time
// feed is degraded.
type HourlyRollup struct {
	SolarSystemID int64     `json:"solar_system_id"`
	Hour          time.Time `json:"hour"` // truncated to the UTC hour
	Kills         int64     `json:"kills"`
	PodKills      int64     `json:"pod_kills"`
}

// bumpRollup increments the hourly rollup for a killmail inside the insert
// transaction, so rollup and detail row commit atomically.
func (s *Store) bumpRollup(txn *badger.Txn, km *killmail.Killmail) error {
	key := rollupKey(km.SolarSystemID, km.Time)

	var rollup HourlyRollup
	item, err := txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		rollup = HourlyRollup{
			SolarSystemID: km.SolarSystemID,
			Hour:          km.Time.UTC().Truncate(time.Hour),
		}
	case err != nil:
		return fmt.Errorf("get rollup: %w", err)
	default:
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rollup)
		}); err != nil {
			return fmt.Errorf("unmarshal rollup: %w", err)
		}
	}

	rollup.Kills++
	if s.classifier != nil && s.classifier.IsCapsule(km.Victim.ShipTypeID) {
		rollup.PodKills++
	}

	data, err := json.Marshal(&rollup)
	if err != nil {
		return fmt.Errorf("marshal rollup: %w", err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("set rollup: %w", err)
	}
	return nil
}

// HourlyRollups returns the rollups for a system covering hours at or after
// since, ordered oldest first.
func (s *Store) HourlyRollups(systemID int64, since time.Time) ([]HourlyRollup, error) {
	start := time.Now()
	defer func() {
		metrics.StoreOperationDuration.WithLabelValues("rollup").Observe(time.Since(start).Seconds())
	}()

	var rollups []HourlyRollup
	prefix := []byte(rollupKeyPrefix + encodeSystem(systemID) + ":")
	seek := []byte(rollupKeyPrefix + encodeSystem(systemID) + ":" + encodeUnix(since.Truncate(time.Hour)))

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var r HourlyRollup
				if err := json.Unmarshal(val, &r); err != nil {
					return fmt.Errorf("unmarshal rollup at %s: %w", it.Item().Key(), err)
				}
				rollups = append(rollups, r)
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
	return rollups, nil
}

// RollupTotals sums kills and pod kills across all rollups for a system.
// Used by retention tests to assert pruning loses no aggregate information.
func (s *Store) RollupTotals(systemID int64) (kills, podKills int64, err error) {
	rollups, err := s.HourlyRollups(systemID, time.Unix(0, 0))
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rollups {
		kills += r.Kills
		podKills += r.PodKills
	}
	return kills, podKills, nil
}

// PruneRollups removes rollup rows for hours strictly older than olderThan
// and returns the number removed.
func (s *Store) PruneRollups(olderThan time.Time) (int, error) {
	var expired [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(rollupKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		cutoff := olderThan.UTC().Truncate(time.Hour).Unix()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			hour, err := parseRollupKey(key)
			if err != nil {
				return err
			}
			if hour < cutoff {
				expired = append(expired, key)
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
	for _, key := range expired {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete rollup %s: %w", key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush rollup prune batch: %w", err)
	}
	return len(expired), nil
}

// rollupKey builds the key for a system's hourly rollup bucket.
func rollupKey(systemID int64, ts time.Time) []byte {
	hour := ts.UTC().Truncate(time.Hour)
	return []byte(rollupKeyPrefix + encodeSystem(systemID) + ":" + encodeUnix(hour))
}

// parseRollupKey extracts the hour timestamp from a rollup key.
func parseRollupKey(key []byte) (int64, error) {
	parts := strings.Split(strings.TrimPrefix(string(key), rollupKeyPrefix), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed rollup key %q", key)
	}
	hour, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed hour in rollup key %q: %w", key, err)
	}
	return hour, nil
}
