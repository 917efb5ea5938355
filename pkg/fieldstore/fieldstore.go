// Package fieldstore persists scalar fields in a Pebble database. Each field
// is stored as an SF01 container under a KSUID key, so listing is ordered by
// creation time.
package fieldstore

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/scalarfield/pkg/codec"
)

var (
	// ErrFieldNotFound is returned when no field exists for an id
	ErrFieldNotFound = fmt.Errorf("field not found: %w", pebble.ErrNotFound)
	// ErrInvalidID is returned when an id is not a valid KSUID
	ErrInvalidID = errors.New("invalid field id")
)

var keyPrefix = []byte("field/")

// Config holds store settings
type Config struct {
	Dir  string
	Sync bool // fsync every write
}

// FieldInfo describes a stored field without its pixels
type FieldInfo struct {
	ID        string    `json:"id"`
	Height    int       `json:"height"`
	Width     int       `json:"width"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarises the store contents
type Stats struct {
	Fields     int   `json:"fields"`
	TotalBytes int64 `json:"total_bytes"`
}

// Store is a Pebble backed field repository. Writes that depend on whether a
// field exists hold mutex across the check and the write.
type Store struct {
	mutex     sync.Mutex
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	codec     *codec.FieldCodec
}

// Open opens or creates a store in cfg.Dir
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("fieldstore: directory is required")
	}
	db, err := pebble.Open(cfg.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open field store: %w", err)
	}
	opts := pebble.NoSync
	if cfg.Sync {
		opts = pebble.Sync
	}
	return &Store{db: db, writeOpts: opts, codec: codec.NewFieldCodec()}, nil
}

// ParseID parses the string form of a field id
func ParseID(s string) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

func fieldKey(id ksuid.KSUID) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(id))
	key = append(key, keyPrefix...)
	return append(key, id.Bytes()...)
}

func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}

// Create stores a new field and returns its id
func (s *Store) Create(field *codec.ScalarField) (ksuid.KSUID, error) {
	data, err := s.codec.Encode(field)
	if err != nil {
		return ksuid.Nil, err
	}
	id := ksuid.New()
	if err := s.db.Set(fieldKey(id), data, s.writeOpts); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to store field: %w", err)
	}
	return id, nil
}

// ReadRaw returns the stored SF01 container for id
func (s *Store) ReadRaw(id ksuid.KSUID) ([]byte, error) {
	value, closer, err := s.db.Get(fieldKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
		}
		return nil, err
	}
	defer closer.Close()

	// value is only valid until closer is closed
	return append([]byte(nil), value...), nil
}

// Read loads and decodes the field stored under id
func (s *Store) Read(id ksuid.KSUID) (*codec.ScalarField, error) {
	data, err := s.ReadRaw(id)
	if err != nil {
		return nil, err
	}
	field, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", id, err)
	}
	return field, nil
}

// Update replaces an existing field
func (s *Store) Update(id ksuid.KSUID, field *codec.ScalarField) error {
	data, err := s.codec.Encode(field)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.exists(id); err != nil {
		return err
	}
	return s.db.Set(fieldKey(id), data, s.writeOpts)
}

// Delete removes an existing field
func (s *Store) Delete(id ksuid.KSUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.exists(id); err != nil {
		return err
	}
	return s.db.Delete(fieldKey(id), s.writeOpts)
}

func (s *Store) exists(id ksuid.KSUID) error {
	_, closer, err := s.db.Get(fieldKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
		}
		return err
	}
	return closer.Close()
}

// List returns every stored field ordered by id
func (s *Store) List() ([]FieldInfo, error) {
	infos := []FieldInfo{}
	err := s.scan(func(id ksuid.KSUID, value []byte) error {
		header, err := s.codec.ReadHeader(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", id, err)
		}
		infos = append(infos, FieldInfo{
			ID:        id.String(),
			Height:    int(header.Height),
			Width:     int(header.Width),
			SizeBytes: len(value),
			CreatedAt: id.Time().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Stats counts stored fields and their encoded size
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.scan(func(_ ksuid.KSUID, value []byte) error {
		st.Fields++
		st.TotalBytes += int64(len(value))
		return nil
	})
	return st, err
}

func (s *Store) scan(fn func(id ksuid.KSUID, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: prefixUpperBound(keyPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(bytes.TrimPrefix(iter.Key(), keyPrefix))
		if err != nil {
			return fmt.Errorf("%w: stored key %x", ErrInvalidID, iter.Key())
		}
		if err := fn(id, iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
