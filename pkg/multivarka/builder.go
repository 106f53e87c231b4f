package multivarka

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ============================================================
// ENTRY POINT
// ============================================================

// QueryBuilder holds the server address and the driver settings shared by
// the chains started from it. It carries no chain state itself.
type QueryBuilder struct {
	address string
	driver  Driver
	logger  *slog.Logger
	debug   *DebugContext
}

// Server is the entry point of the DSL:
//
//	docs, err := multivarka.Server("mongodb://localhost/school").
//		Collection("students").
//		Where("group").Equal("CS-301").
//		Find(ctx)
//
// Without WithDriver the driver is resolved from the address scheme when the
// terminal action runs.
func Server(address string, opts ...Option) *QueryBuilder {
	b := &QueryBuilder{
		address: address,
		logger:  slog.Default(),
		debug:   DefaultDebugContext(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Address returns the address passed to Server
func (b *QueryBuilder) Address() string {
	return b.address
}

// Collection starts a new chain against the named collection.
// Every call returns an independent chain.
func (b *QueryBuilder) Collection(name string) CollectionStep {
	s := &chainState{
		target:   Target{Address: b.address, Collection: name},
		filter:   Document{},
		stage:    stageStart,
		executor: NewExecutor(b.driver, b.logger),
		debug:    b.debug,
	}
	if name == "" {
		s.fail("Collection", "collection name is empty")
	} else {
		s.stage = stageCollection
	}
	return &collectionStep{s: s}
}

// ============================================================
// CHAIN STATE
// ============================================================

type stage int

const (
	stageStart stage = iota
	stageCollection
	stagePending
	stageCondition
	stageSet
	stageExecuted
)

func (s stage) String() string {
	switch s {
	case stageStart:
		return "Server"
	case stageCollection:
		return "Collection"
	case stagePending:
		return "Where"
	case stageCondition:
		return "a condition"
	case stageSet:
		return "Set"
	case stageExecuted:
		return "a terminal action"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// chainState is owned by one chain and shared by its step values only.
type chainState struct {
	target Target
	filter Document
	set    Document

	// pending condition
	field  string
	negate bool

	stage stage
	// first contract violation; it poisons the rest of the chain
	err error

	executor *Executor
	debug    *DebugContext
}

func (s *chainState) fail(op, reason string) {
	if s.err != nil {
		return
	}
	s.err = &ContractViolation{Op: op, Stage: s.stage.String(), Reason: reason}
}

// allow reports whether op may run in the current stage, recording a
// violation when it may not
func (s *chainState) allow(op string, allowed ...stage) bool {
	if s.err != nil {
		return false
	}
	for _, st := range allowed {
		if s.stage == st {
			return true
		}
	}
	s.fail(op, "")
	return false
}

func (s *chainState) where(field string) {
	if !s.allow("Where", stageCollection, stageCondition) {
		return
	}
	if field == "" {
		s.fail("Where", "field name is empty")
		return
	}
	s.field = field
	s.negate = false
	s.stage = stagePending
}

func (s *chainState) not() {
	if !s.allow("Not", stagePending) {
		return
	}
	s.negate = !s.negate
}

func (s *chainState) condition(cmp Comparison, value interface{}) {
	op := cmp.String()
	if !s.allow(op, stagePending) {
		return
	}
	if cmp == CompareInclude {
		list, ok := normalizeList(value)
		if !ok {
			s.fail(op, fmt.Sprintf("expected a slice or array, got %T", value))
			return
		}
		value = list
	}

	MergeCondition(s.filter, s.field, Fragment(cmp, s.negate, value))

	s.field = ""
	s.negate = false
	s.stage = stageCondition
}

func (s *chainState) setField(field string, value interface{}) {
	if !s.allow("Set", stageCollection, stageCondition, stageSet) {
		return
	}
	if field == "" {
		s.fail("Set", "field name is empty")
		return
	}
	if s.set == nil {
		s.set = Document{}
	}
	s.set[field] = value
	s.stage = stageSet
}

// ============================================================
// TERMINAL ACTIONS
// ============================================================

func (s *chainState) find(ctx context.Context) ([]Document, error) {
	if !s.allow("Find", stageCollection, stageCondition) {
		return nil, s.err
	}
	s.stage = stageExecuted

	filter := s.filter
	return run(ctx, s, "find",
		[]namedDoc{{"FILTER", filter}},
		func(docs []Document) int64 { return int64(len(docs)) },
		func(ctx context.Context, coll Collection) ([]Document, error) {
			cursor, err := coll.Find(ctx, filter)
			if err != nil {
				return nil, err
			}
			return cursor.All(ctx)
		})
}

func (s *chainState) insert(ctx context.Context, record Document) (*InsertResult, error) {
	if !s.allow("Insert", stageCollection) {
		return nil, s.err
	}
	if record == nil {
		s.fail("Insert", "record is nil")
		return nil, s.err
	}
	s.stage = stageExecuted

	return run(ctx, s, "insert",
		[]namedDoc{{"RECORD", record}},
		func(*InsertResult) int64 { return 1 },
		func(ctx context.Context, coll Collection) (*InsertResult, error) {
			return coll.Insert(ctx, record)
		})
}

func (s *chainState) update(ctx context.Context) (*UpdateResult, error) {
	if !s.allow("Update", stageSet) {
		return nil, s.err
	}
	s.stage = stageExecuted

	filter := s.filter
	update := Document{OpSet: s.set}
	return run(ctx, s, "update",
		[]namedDoc{{"FILTER", filter}, {"UPDATE", update}},
		func(r *UpdateResult) int64 {
			if r == nil {
				return 0
			}
			return r.Modified
		},
		func(ctx context.Context, coll Collection) (*UpdateResult, error) {
			return coll.Update(ctx, filter, update, UpdateOptions{Multi: true})
		})
}

func (s *chainState) remove(ctx context.Context) (*RemoveResult, error) {
	if !s.allow("Remove", stageCollection, stageCondition) {
		return nil, s.err
	}
	s.stage = stageExecuted

	filter := s.filter
	return run(ctx, s, "remove",
		[]namedDoc{{"FILTER", filter}},
		func(r *RemoveResult) int64 {
			if r == nil {
				return 0
			}
			return r.Removed
		},
		func(ctx context.Context, coll Collection) (*RemoveResult, error) {
			return coll.Remove(ctx, filter)
		})
}

// run executes action through the chain's executor and returns what the
// driver produced, unchanged
func run[T any](
	ctx context.Context,
	s *chainState,
	op string,
	docs []namedDoc,
	count func(T) int64,
	action func(context.Context, Collection) (T, error),
) (T, error) {
	var (
		out    T
		outErr error
	)

	s.debug.query(op, s.target, docs...)
	start := time.Now()

	s.executor.Execute(ctx, s.target, op,
		func(ctx context.Context, coll Collection) (interface{}, error) {
			return action(ctx, coll)
		},
		func(result interface{}, err error) {
			if err != nil {
				outErr = err
				return
			}
			out, _ = result.(T)
		})

	var n int64
	if outErr == nil {
		n = count(out)
	}
	s.debug.trace(op, s.target, time.Since(start), n, outErr)

	return out, outErr
}

// ============================================================
// STEPS
// ============================================================

type collectionStep struct {
	s *chainState
}

func (c *collectionStep) Where(field string) ConditionStep {
	c.s.where(field)
	return &conditionStep{s: c.s}
}

func (c *collectionStep) Set(field string, value interface{}) UpdateStep {
	c.s.setField(field, value)
	return &updateStep{s: c.s}
}

func (c *collectionStep) Insert(ctx context.Context, record Document) (*InsertResult, error) {
	return c.s.insert(ctx, record)
}

func (c *collectionStep) Find(ctx context.Context) ([]Document, error) {
	return c.s.find(ctx)
}

func (c *collectionStep) Remove(ctx context.Context) (*RemoveResult, error) {
	return c.s.remove(ctx)
}

type conditionStep struct {
	s *chainState
}

func (c *conditionStep) Not() ConditionStep {
	c.s.not()
	return c
}

func (c *conditionStep) Equal(value interface{}) FilterStep {
	c.s.condition(CompareEqual, value)
	return &filterStep{s: c.s}
}

func (c *conditionStep) LessThan(value interface{}) FilterStep {
	c.s.condition(CompareLessThan, value)
	return &filterStep{s: c.s}
}

func (c *conditionStep) MoreThan(value interface{}) FilterStep {
	c.s.condition(CompareMoreThan, value)
	return &filterStep{s: c.s}
}

func (c *conditionStep) Include(list interface{}) FilterStep {
	c.s.condition(CompareInclude, list)
	return &filterStep{s: c.s}
}

type filterStep struct {
	s *chainState
}

func (f *filterStep) Where(field string) ConditionStep {
	f.s.where(field)
	return &conditionStep{s: f.s}
}

func (f *filterStep) Set(field string, value interface{}) UpdateStep {
	f.s.setField(field, value)
	return &updateStep{s: f.s}
}

func (f *filterStep) Find(ctx context.Context) ([]Document, error) {
	return f.s.find(ctx)
}

func (f *filterStep) Remove(ctx context.Context) (*RemoveResult, error) {
	return f.s.remove(ctx)
}

type updateStep struct {
	s *chainState
}

func (u *updateStep) Set(field string, value interface{}) UpdateStep {
	u.s.setField(field, value)
	return u
}

func (u *updateStep) Update(ctx context.Context) (*UpdateResult, error) {
	return u.s.update(ctx)
}
