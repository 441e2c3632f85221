package credcache

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/stratbot/gostrat/internal/domain"
)

// Cache is a local store of masked exchange-credential summaries (Badger).
// It keeps only what the vault list endpoint returns (name, exchange id, key
// hint) so credential pickers keep working when the backend is unreachable.
// Full secrets are never written here: entries are stripped before storage.
// Note: encryption is provided by Badger options, not by this wrapper.
type Cache struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; if nil, DB is opened without encryption
	ReadOnly      bool
}

const entryPrefix = "vault/"

func Open(opts OpenOptions) (*Cache, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("credcache: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// Badger requires index cache for encrypted workloads
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20) // 100MB
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// PutSummaries replaces the cached summaries with the given vault entries.
// Secret fields are zeroed before writing regardless of what the caller passes.
func (c *Cache) PutSummaries(entries []domain.VaultEntry) error {
	if c == nil || c.db == nil {
		return errors.New("credcache: not opened")
	}
	return c.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		prefix := []byte(entryPrefix)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		for _, entry := range entries {
			summary := entry
			summary.APIKey = ""
			summary.APISecret = ""
			summary.Passphrase = ""
			data, err := json.Marshal(summary)
			if err != nil {
				return err
			}
			if err := txn.Set(keyFor(summary.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSummary returns the cached summary for a vault entry id.
// The second return reports whether the entry was found.
func (c *Cache) GetSummary(id int64) (*domain.VaultEntry, bool, error) {
	if c == nil || c.db == nil {
		return nil, false, errors.New("credcache: not opened")
	}
	var entry *domain.VaultEntry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFor(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var e domain.VaultEntry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			entry = &e
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return entry, entry != nil, nil
}

// Summaries returns all cached vault entry summaries.
func (c *Cache) Summaries() ([]domain.VaultEntry, error) {
	if c == nil || c.db == nil {
		return nil, errors.New("credcache: not opened")
	}
	var entries []domain.VaultEntry
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(entryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e domain.VaultEntry
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				entries = append(entries, e)
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
	return entries, nil
}

func keyFor(id int64) []byte {
	return []byte(fmt.Sprintf("%s%d", entryPrefix, id))
}

// ParseKey expects 32 bytes (base64 or hex). Returns nil if input is empty.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	rawHex := strings.TrimPrefix(raw, "0x")
	if b, err := hex.DecodeString(rawHex); err == nil {
		if len(b) == 32 {
			return b, nil
		}
		return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
