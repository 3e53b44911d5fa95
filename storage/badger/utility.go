package badger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wayfind/core"
	"github.com/poiesic/wayfind/storage"
)

// maxIDAttempts bounds how many taken IDs NextID skips before giving up.
const maxIDAttempts = 1 << 16

// UtilityRepository implements storage.UtilityRepository for BadgerDB.
type UtilityRepository struct {
	backend  *Backend
	orderSeq *badger.Sequence
	idSeq    *badger.Sequence
}

var _ storage.UtilityRepository = (*UtilityRepository)(nil)

// NewUtilityRepository creates a new UtilityRepository.
func NewUtilityRepository(backend *Backend) (*UtilityRepository, error) {
	orderSeq, err := backend.GetSequence(utilityOrderSeq)
	if err != nil {
		return nil, err
	}
	idSeq, err := backend.GetSequence(utilityIDSeq)
	if err != nil {
		orderSeq.Release()
		return nil, err
	}

	return &UtilityRepository{
		backend:  backend,
		orderSeq: orderSeq,
		idSeq:    idSeq,
	}, nil
}

// Close releases the sequences.
func (r *UtilityRepository) Close() error {
	return errors.Join(r.orderSeq.Release(), r.idSeq.Release())
}

// WithTransaction delegates to the backend.
func (r *UtilityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutUtilities inserts or replaces utilities.
func (r *UtilityRepository) PutUtilities(ctx context.Context, utilities ...*core.Utility) ([]*core.Utility, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, utility := range utilities {
			if utility.ID == "" {
				id, err := r.allocateID(tx)
				if err != nil {
					return err
				}
				utility.ID = id
			}

			// New utilities join the end of the collection order
			posKey := makeUtilityPositionKey(utility.ID)
			if _, err := tx.Get(posKey); err != nil {
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
				seq, err := nextNonZero(r.orderSeq)
				if err != nil {
					return err
				}
				if err := tx.Set(makeUtilityOrderKey(seq), []byte(utility.ID)); err != nil {
					return err
				}
				if err := tx.Set(posKey, storage.MarshalSeq(seq)); err != nil {
					return err
				}
			}

			// Store primary record
			key := makeUtilityKey(utility.ID)
			if err := tx.Set(key, storage.MarshalUtility(utility)); err != nil {
				return err
			}
		}
		return commit(tx)
	}, true)

	return utilities, err
}

// DeleteUtilities removes utilities by their IDs.
func (r *UtilityRepository) DeleteUtilities(ctx context.Context, ids ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			posKey := makeUtilityPositionKey(id)
			item, err := tx.Get(posKey)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: utility %s", storage.ErrNotFound, id)
				}
				return err
			}

			var seq uint64
			if err := item.Value(func(val []byte) error {
				var err error
				seq, err = storage.UnmarshalSeq(val)
				return err
			}); err != nil {
				return err
			}

			// Delete from order index
			if err := tx.Delete(makeUtilityOrderKey(seq)); err != nil {
				return err
			}
			if err := tx.Delete(posKey); err != nil {
				return err
			}

			// Delete primary record
			if err := tx.Delete(makeUtilityKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetUtility retrieves a single utility by ID.
func (r *UtilityRepository) GetUtility(ctx context.Context, id string) (*core.Utility, error) {
	var result *core.Utility
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readUtility(tx, makeUtilityKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("%w: utility %s", storage.ErrNotFound, id)
		}
		return nil
	}, false)
	return result, err
}

// GetUtilities retrieves multiple utilities by their IDs.
func (r *UtilityRepository) GetUtilities(ctx context.Context, ids ...string) ([]*core.Utility, error) {
	var result []*core.Utility
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			utility, err := readUtility(tx, makeUtilityKey(id))
			if err != nil {
				return err
			}
			if utility != nil {
				result = append(result, utility)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListUtilities returns every utility in insertion order.
func (r *UtilityRepository) ListUtilities(ctx context.Context) ([]core.Utility, error) {
	results := []core.Utility{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(utilityOrderPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			// Read the ID from the index
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			// Look up the full record
			utility, err := readUtility(tx, makeUtilityKey(id))
			if err != nil {
				return err
			}
			if utility != nil {
				results = append(results, *utility)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountUtilities returns the number of stored utilities.
func (r *UtilityRepository) CountUtilities(ctx context.Context) (int, error) {
	return r.backend.CountPrefix(utilityRecordPrefix)
}

// NextID allocates a numeric ID not used by any stored utility.
func (r *UtilityRepository) NextID(ctx context.Context) (string, error) {
	var id string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		id, err = r.allocateID(tx)
		return err
	}, false)
	return id, err
}

// Helper methods

// allocateID draws from the ID sequence until it finds an unused ID.
// Imported collections carry their own numeric IDs, so taken values are skipped.
func (r *UtilityRepository) allocateID(tx *badger.Txn) (string, error) {
	for range maxIDAttempts {
		next, err := nextNonZero(r.idSeq)
		if err != nil {
			return "", err
		}
		id := strconv.FormatUint(next, 10)
		_, err = tx.Get(makeUtilityKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", storage.ErrSequenceExhausted
}

// readUtility reads a utility from the transaction.
func readUtility(tx *badger.Txn, key []byte) (*core.Utility, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var utility *core.Utility
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		utility, unmarshalErr = storage.UnmarshalUtility(val)
		return unmarshalErr
	})
	return utility, err
}
