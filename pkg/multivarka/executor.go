package multivarka

import (
	"context"
	"log/slog"
)

// Action is one terminal operation run against an open collection
type Action func(ctx context.Context, coll Collection) (interface{}, error)

// Deliver receives the outcome of Execute. It is called exactly once.
type Deliver func(result interface{}, err error)

// Executor is the single place a chain touches the driver
type Executor struct {
	driver Driver
	logger *slog.Logger
}

// NewExecutor creates an executor over driver. A nil driver is looked up by
// address scheme on every Execute.
func NewExecutor(driver Driver, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{driver: driver, logger: logger}
}

// Execute connects to target.Address, runs action on target.Collection and
// hands the outcome to deliver.
//
// A failed connect is delivered as a *ConnectionError and the action never
// runs. Otherwise the connection is closed once deliver has returned,
// whether the action failed or not.
func (ex *Executor) Execute(ctx context.Context, target Target, op string, action Action, deliver Deliver) {
	address := RedactAddress(target.Address)

	driver := ex.driver
	if driver == nil {
		var err error
		if driver, err = lookupDriver(target.Address); err != nil {
			deliver(nil, &ConnectionError{Address: address, Err: err})
			return
		}
	}

	conn, err := driver.Connect(ctx, target.Address)
	if err != nil {
		ex.logger.Debug("connect failed", "address", address, "error", err)
		deliver(nil, &ConnectionError{Address: address, Err: err})
		return
	}
	ex.logger.Debug("connected", "address", address, "collection", target.Collection, "op", op)
	defer ex.release(ctx, conn, address)

	result, err := action(ctx, conn.Collection(target.Collection))
	if err != nil {
		deliver(nil, &ActionError{Action: op, Collection: target.Collection, Err: err})
		return
	}
	deliver(result, nil)
}

func (ex *Executor) release(ctx context.Context, conn Conn, address string) {
	// a cancelled caller context must not prevent the release
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		ex.logger.Warn("close failed", "address", address, "error", err)
	}
}
