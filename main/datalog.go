/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	datalog.go: Log payload telemetry to sqlite, one row per channel per poll.

*/

package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ricochet2200/go-disk-usage/du"

	"github.com/yearling2/payload/sensors"
)

const (
	createTelemetryTable = `CREATE TABLE IF NOT EXISTS telemetry (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		channel TEXT NOT NULL,
		x REAL, y REAL, z REAL, w REAL
	)`
	insertTelemetry = `INSERT INTO telemetry (ts, channel, x, y, z, w) VALUES (?, ?, ?, ?, ?, ?)`

	// Stop logging before the card fills up.
	maxDiskUsage = 0.95
)

type dataLog struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func openDataLog(path string) (*dataLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("datalog dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("datalog open: %w", err)
	}
	if _, err = db.Exec(createTelemetryTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("datalog create table: %w", err)
	}
	return &dataLog{db: db, path: path}, nil
}

// Record writes every value in snap under timestamp ts in one transaction.
func (l *dataLog) Record(ts time.Time, snap map[sensors.Channel]sensors.Vector) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if usage := du.NewDiskUsage(filepath.Dir(l.path)); usage.Usage() > maxDiskUsage {
		return fmt.Errorf("datalog: disk %.0f%% full, not logging", usage.Usage()*100)
	}

	channels := make([]sensors.Channel, 0, len(snap))
	for c := range snap {
		channels = append(channels, c)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("datalog begin: %w", err)
	}
	stmt, err := tx.Prepare(insertTelemetry)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("datalog prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range channels {
		v := snap[c]
		cols := make([]interface{}, 4)
		for i := range cols {
			if i < len(v) {
				cols[i] = v[i]
			}
		}
		if _, err = stmt.Exec(ts.UnixNano(), c.String(), cols[0], cols[1], cols[2], cols[3]); err != nil {
			tx.Rollback()
			return fmt.Errorf("datalog insert %s: %w", c, err)
		}
	}
	return tx.Commit()
}

func (l *dataLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}
