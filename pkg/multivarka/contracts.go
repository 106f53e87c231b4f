// Package multivarka builds document-store queries from a chain of calls
// (server, collection, where, condition, action) and runs them through a
// pluggable driver.
package multivarka

import "context"

// ============================================================
// DOCUMENTS
// ============================================================

// Document is a schemaless record, filter or update as exchanged with drivers.
type Document map[string]interface{}

// Target identifies where a chain runs. It is fixed once Collection is called.
type Target struct {
	Address    string
	Collection string
}

// UpdateOptions are passed to Collection.Update
type UpdateOptions struct {
	// Multi applies the update to every matching record instead of the first one
	Multi bool
}

// ============================================================
// CHAIN STEP INTERFACES
// ============================================================

// CollectionStep is returned by QueryBuilder.Collection, before any condition
type CollectionStep interface {
	// Where selects the field the next condition applies to
	Where(field string) ConditionStep

	// Set adds a field to the update document
	Set(field string, value interface{}) UpdateStep

	// Insert adds record to the collection. Only valid before any Where.
	Insert(ctx context.Context, record Document) (*InsertResult, error)

	// Find returns every record (no filter has been set yet)
	Find(ctx context.Context) ([]Document, error)

	// Remove deletes every record
	Remove(ctx context.Context) (*RemoveResult, error)
}

// ConditionStep is returned by Where and waits for a comparison
type ConditionStep interface {
	// Not flips the polarity of the next comparison
	Not() ConditionStep

	Equal(value interface{}) FilterStep
	LessThan(value interface{}) FilterStep
	MoreThan(value interface{}) FilterStep

	// Include matches records whose field is one of list (a slice or array)
	Include(list interface{}) FilterStep
}

// FilterStep is returned once a condition has been added to the filter
type FilterStep interface {
	Where(field string) ConditionStep
	Set(field string, value interface{}) UpdateStep
	Find(ctx context.Context) ([]Document, error)
	Remove(ctx context.Context) (*RemoveResult, error)
}

// UpdateStep accumulates $set fields until Update runs
type UpdateStep interface {
	Set(field string, value interface{}) UpdateStep

	// Update applies the accumulated $set document to all matching records
	Update(ctx context.Context) (*UpdateResult, error)
}

// ============================================================
// DRIVER CONTRACTS
// ============================================================

// Driver opens connections to a document store.
//
// Implementations register themselves with RegisterDriver from an init()
// function, the same way database/sql drivers do.
type Driver interface {
	Connect(ctx context.Context, address string) (Conn, error)
}

// Conn is a single open connection, used for exactly one terminal action.
type Conn interface {
	Collection(name string) Collection

	// Close releases the connection. Errors are logged by the executor, not returned to callers.
	Close(ctx context.Context) error
}

// Collection runs the terminal actions against one collection
type Collection interface {
	Find(ctx context.Context, filter Document) (Cursor, error)
	Insert(ctx context.Context, record Document) (*InsertResult, error)
	Update(ctx context.Context, filter, update Document, opts UpdateOptions) (*UpdateResult, error)
	Remove(ctx context.Context, filter Document) (*RemoveResult, error)
}

// Cursor yields the documents produced by Collection.Find
type Cursor interface {
	All(ctx context.Context) ([]Document, error)
}
