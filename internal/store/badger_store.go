// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/payflowd/payflow/internal/model"
)

// BadgerStore checkpoints session records in an embedded Badger database.
// Keys: "sess:<id>" with JSON values. Transactions give UpdateSession its
// read-modify-write atomicity.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the session checkpoint database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func sessionKey(id string) []byte { return []byte("sess:" + id) }

func (s *BadgerStore) PutSession(_ context.Context, rec *model.SessionRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(rec.SessionID), buf)
	})
}

func (s *BadgerStore) GetSession(_ context.Context, id string) (*model.SessionRecord, error) {
	var out model.SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) UpdateSession(_ context.Context, id string, fn func(*model.SessionRecord) error) (*model.SessionRecord, error) {
	var out model.SessionRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		}); err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		buf, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return txn.Set(sessionKey(id), buf)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) ListSessions(_ context.Context) ([]*model.SessionRecord, error) {
	var out []*model.SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("sess:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec model.SessionRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ SessionStore = (*BadgerStore)(nil)
