package state

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

const (
	checkpointPrefix = "cp:"
	failuresPrefix   = "fail:"
)

// BadgerStore keeps checkpoints in an embedded Badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the database at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) PutCheckpoint(_ context.Context, cp *Checkpoint) error {
	key := []byte(checkpointPrefix + cp.Source)
	buf, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

func (s *BadgerStore) GetCheckpoint(_ context.Context, source string) (*Checkpoint, error) {
	key := []byte(checkpointPrefix + source)
	var out Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) ListCheckpoints(ctx context.Context) ([]*Checkpoint, error) {
	prefix := []byte(checkpointPrefix)
	var list []*Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var cp Checkpoint
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &cp)
			}); err != nil {
				continue
			}
			list = append(list, &cp)
		}
		return nil
	})
	return list, err
}

func (s *BadgerStore) IncrementFailures(_ context.Context, source string) (int, error) {
	key := []byte(failuresPrefix + source)
	var count int
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			if verr := item.Value(func(val []byte) error {
				count, _ = strconv.Atoi(string(val))
				return nil
			}); verr != nil {
				return verr
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		count++
		return txn.Set(key, []byte(strconv.Itoa(count)))
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *BadgerStore) ResetFailures(_ context.Context, source string) error {
	key := []byte(failuresPrefix + source)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *BadgerStore) Failures(_ context.Context, source string) (int, error) {
	key := []byte(failuresPrefix + source)
	var count int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			count, _ = strconv.Atoi(string(val))
			return nil
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// Compile-time interface check.
var _ Store = (*BadgerStore)(nil)
