// Package memdriver keeps collections in process memory.
//
// Addresses have the form mem://<store>[?snapshot=<path>]. Connections to the
// same store name share data. With a snapshot path the store is loaded from
// disk when first opened and written back when a connection that changed it
// is closed.
package memdriver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

// Scheme is the address scheme served by this driver
const Scheme = "mem"

// IDField is added to inserted records that have none
const IDField = "_id"

var defaultDriver = New()

func init() {
	multivarka.RegisterDriver(Scheme, defaultDriver)
}

// Default returns the driver registered for the mem scheme
func Default() *Driver {
	return defaultDriver
}

// Driver owns the process-wide set of stores
type Driver struct {
	mu     sync.Mutex
	stores map[string]*store
}

// New returns a driver with no stores
func New() *Driver {
	return &Driver{stores: make(map[string]*store)}
}

// Connect implements multivarka.Driver
func (d *Driver) Connect(ctx context.Context, address string) (multivarka.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, snapshot, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.stores[name]
	if !ok {
		st = &store{
			name:        name,
			snapshot:    snapshot,
			collections: make(map[string][]multivarka.Document),
		}
		if snapshot != "" {
			collections, err := readSnapshot(snapshot)
			if err != nil {
				return nil, fmt.Errorf("load snapshot %s: %w", snapshot, err)
			}
			st.collections = collections
		}
		d.stores[name] = st
	}

	return &conn{store: st}, nil
}

// Drop forgets a store. A snapshot file, if any, is left on disk.
func (d *Driver) Drop(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.stores, name)
}

func parseAddress(address string) (name, snapshot string, err error) {
	rest, ok := strings.CutPrefix(address, Scheme+"://")
	if !ok {
		return "", "", fmt.Errorf("memdriver: address %q must start with %s://", address, Scheme)
	}

	name, rawQuery, _ := strings.Cut(rest, "?")
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		name = "default"
	}

	if rawQuery != "" {
		q, err := url.ParseQuery(rawQuery)
		if err != nil {
			return "", "", fmt.Errorf("memdriver: invalid query in %q: %w", address, err)
		}
		snapshot = q.Get("snapshot")
	}
	return name, snapshot, nil
}

// ============================================================
// STORE
// ============================================================

type store struct {
	mu          sync.RWMutex
	name        string
	snapshot    string
	collections map[string][]multivarka.Document

	// writeMu serializes snapshot writes so an older clone never replaces a newer file
	writeMu sync.Mutex
	// version increases on every write
	version uint64
	saved   uint64
}

func (s *store) persist() error {
	if s.snapshot == "" {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	if s.version == s.saved {
		s.mu.RUnlock()
		return nil
	}
	version := s.version
	copied := make(map[string][]multivarka.Document, len(s.collections))
	for name, docs := range s.collections {
		cloned := make([]multivarka.Document, len(docs))
		for i, doc := range docs {
			cloned[i] = doc.Clone()
		}
		copied[name] = cloned
	}
	s.mu.RUnlock()

	if err := writeSnapshot(s.snapshot, copied); err != nil {
		return err
	}

	s.mu.Lock()
	s.saved = version
	s.mu.Unlock()
	return nil
}

// ============================================================
// CONNECTION
// ============================================================

type conn struct {
	store *store
	once  sync.Once
}

// ErrClosed is returned when a connection is closed twice
var ErrClosed = errors.New("memdriver: connection already closed")

func (c *conn) Collection(name string) multivarka.Collection {
	return &collection{store: c.store, name: name}
}

func (c *conn) Close(ctx context.Context) error {
	err := ErrClosed
	c.once.Do(func() {
		err = c.store.persist()
	})
	return err
}

// ============================================================
// COLLECTION
// ============================================================

type collection struct {
	store *store
	name  string
}

func (c *collection) Find(ctx context.Context, filter multivarka.Document) (multivarka.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var out []multivarka.Document
	for _, doc := range c.store.collections[c.name] {
		ok, err := Matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc.Clone())
		}
	}
	return &cursor{docs: out}, nil
}

func (c *collection) Insert(ctx context.Context, record multivarka.Document) (*multivarka.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("memdriver: nil record")
	}

	doc := record.Clone()
	id, ok := doc[IDField]
	if !ok || id == nil {
		id = uuid.NewString()
		doc[IDField] = id
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, existing := range c.store.collections[c.name] {
		if ValuesEqual(existing[IDField], id) {
			return nil, fmt.Errorf("memdriver: duplicate %s %v in %s", IDField, id, c.name)
		}
	}
	c.store.collections[c.name] = append(c.store.collections[c.name], doc)
	c.store.version++

	return &multivarka.InsertResult{InsertedID: id}, nil
}

func (c *collection) Update(ctx context.Context, filter, update multivarka.Document, opts multivarka.UpdateOptions) (*multivarka.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields, err := setFields(update)
	if err != nil {
		return nil, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var matched []multivarka.Document
	for _, doc := range c.store.collections[c.name] {
		ok, err := Matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, doc)
			if !opts.Multi {
				break
			}
		}
	}

	result := &multivarka.UpdateResult{Matched: int64(len(matched))}
	for _, doc := range matched {
		changed := false
		for field, value := range fields {
			old, exists := doc[field]
			if !exists || !ValuesEqual(old, value) {
				doc[field] = multivarka.CloneValue(value)
				changed = true
			}
		}
		if changed {
			result.Modified++
		}
	}

	if result.Modified > 0 {
		c.store.version++
	}
	return result, nil
}

func (c *collection) Remove(ctx context.Context, filter multivarka.Document) (*multivarka.RemoveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.store.collections[c.name]
	kept := make([]multivarka.Document, 0, len(docs))
	var removed int64
	for _, doc := range docs {
		ok, err := Matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	c.store.collections[c.name] = kept

	if removed > 0 {
		c.store.version++
	}
	return &multivarka.RemoveResult{Removed: removed}, nil
}

// setFields extracts the $set document; no other update operator is supported
func setFields(update multivarka.Document) (multivarka.Document, error) {
	var fields multivarka.Document
	for op, arg := range update {
		if op != multivarka.OpSet {
			return nil, fmt.Errorf("memdriver: unsupported update operator %s", op)
		}
		doc, ok := asDocument(arg)
		if !ok {
			return nil, fmt.Errorf("memdriver: %s needs a document, got %T", op, arg)
		}
		fields = doc
	}
	if len(fields) == 0 {
		return nil, errors.New("memdriver: empty update")
	}
	return fields, nil
}

type cursor struct {
	docs []multivarka.Document
}

func (c *cursor) All(ctx context.Context) ([]multivarka.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.docs, nil
}
