// SPDX-License-Identifier: MIT

package store

import (
	"fmt"
	"path/filepath"
)

// OpenStores assembles the store set for the configured backend.
//
//	memory: everything in-process (tests, local iteration)
//	sqlite: badger session checkpoints + sqlite schedule/idempotency
//	redis:  like sqlite, but the idempotency ledger lives in Redis so
//	        multiple daemon replicas share one first-writer-wins view
func OpenStores(backend, dataDir, redisAddr string) (*Stores, error) {
	switch backend {
	case "", "sqlite":
		return openDurable(dataDir, "")
	case "redis":
		if redisAddr == "" {
			return nil, fmt.Errorf("store: redis backend requires an address")
		}
		return openDurable(dataDir, redisAddr)
	case "memory":
		mem := NewMemoryStore()
		return &Stores{Sessions: mem, Idem: mem, Schedule: mem}, nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}

func openDurable(dataDir, redisAddr string) (*Stores, error) {
	sessions, err := OpenBadgerStore(filepath.Join(dataDir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("store: open session store: %w", err)
	}

	sqlite, err := OpenSqliteStore(filepath.Join(dataDir, "payflow.db"))
	if err != nil {
		_ = sessions.Close()
		return nil, fmt.Errorf("store: open sqlite store: %w", err)
	}

	out := &Stores{
		Sessions: sessions,
		Idem:     sqlite,
		Schedule: sqlite,
		closers:  []func() error{sessions.Close, sqlite.Close},
	}

	if redisAddr != "" {
		idem, err := NewRedisIdemStore(redisAddr)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("store: open redis idempotency ledger: %w", err)
		}
		out.Idem = idem
		out.closers = append(out.closers, idem.Close)
	}
	return out, nil
}
