package multivarka

import (
	"context"
	"sync"
)

// recordingDriver records every call made through it
type recordingDriver struct {
	mu    sync.Mutex
	calls []string

	connectErr error
	actionErr  error
	closeErr   error
	docs       []Document

	addresses   []string
	collections []string
	filters     []Document
	records     []Document
	updates     []Document
	updateOpts  []UpdateOptions
	closed      int
}

// record appends call and runs fn under the driver lock
func (d *recordingDriver) record(call string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	if fn != nil {
		fn()
	}
}

func (d *recordingDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *recordingDriver) Connect(ctx context.Context, address string) (Conn, error) {
	d.record("connect", func() { d.addresses = append(d.addresses, address) })
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	return &recordingConn{d: d}, nil
}

type recordingConn struct {
	d *recordingDriver
}

func (c *recordingConn) Collection(name string) Collection {
	c.d.record("collection", func() { c.d.collections = append(c.d.collections, name) })
	return &recordingCollection{d: c.d}
}

func (c *recordingConn) Close(ctx context.Context) error {
	c.d.record("close", func() { c.d.closed++ })
	return c.d.closeErr
}

type recordingCollection struct {
	d *recordingDriver
}

func (c *recordingCollection) Find(ctx context.Context, filter Document) (Cursor, error) {
	c.d.record("find", func() { c.d.filters = append(c.d.filters, filter) })
	if c.d.actionErr != nil {
		return nil, c.d.actionErr
	}
	return &recordingCursor{docs: c.d.docs}, nil
}

func (c *recordingCollection) Insert(ctx context.Context, record Document) (*InsertResult, error) {
	c.d.record("insert", func() { c.d.records = append(c.d.records, record) })
	if c.d.actionErr != nil {
		return nil, c.d.actionErr
	}
	return &InsertResult{InsertedID: "id-1"}, nil
}

func (c *recordingCollection) Update(ctx context.Context, filter, update Document, opts UpdateOptions) (*UpdateResult, error) {
	c.d.record("update", func() {
		c.d.filters = append(c.d.filters, filter)
		c.d.updates = append(c.d.updates, update)
		c.d.updateOpts = append(c.d.updateOpts, opts)
	})
	if c.d.actionErr != nil {
		return nil, c.d.actionErr
	}
	return &UpdateResult{Matched: 2, Modified: 2}, nil
}

func (c *recordingCollection) Remove(ctx context.Context, filter Document) (*RemoveResult, error) {
	c.d.record("remove", func() { c.d.filters = append(c.d.filters, filter) })
	if c.d.actionErr != nil {
		return nil, c.d.actionErr
	}
	return &RemoveResult{Removed: 3}, nil
}

type recordingCursor struct {
	docs []Document
}

func (c *recordingCursor) All(ctx context.Context) ([]Document, error) {
	return c.docs, nil
}
