// Package mongodriver runs chains against MongoDB with the official driver.
// It registers itself for the mongodb and mongodb+srv schemes.
package mongodriver

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

// DefaultDatabase is used when the address names no database
const DefaultDatabase = "test"

func init() {
	d := &Driver{}
	multivarka.RegisterDriver("mongodb", d)
	multivarka.RegisterDriver("mongodb+srv", d)
}

// Driver opens one client per chain
type Driver struct {
	// ClientOptions is applied after the URI, if set
	ClientOptions *options.ClientOptions
}

// Connect implements multivarka.Driver. The server is pinged before the
// connection is handed out so that a bad address fails here and not in the action.
func (d *Driver) Connect(ctx context.Context, address string) (multivarka.Conn, error) {
	cs, err := connstring.ParseAndValidate(address)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb address: %w", err)
	}
	database := cs.Database
	if database == "" {
		database = DefaultDatabase
	}

	opts := []*options.ClientOptions{options.Client().ApplyURI(address)}
	if d.ClientOptions != nil {
		opts = append(opts, d.ClientOptions)
	}

	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &conn{client: client, db: client.Database(database)}, nil
}

type conn struct {
	client *mongo.Client
	db     *mongo.Database
}

func (c *conn) Collection(name string) multivarka.Collection {
	return &collection{coll: c.db.Collection(name)}
}

func (c *conn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Find(ctx context.Context, filter multivarka.Document) (multivarka.Cursor, error) {
	cur, err := c.coll.Find(ctx, toBSON(filter))
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur}, nil
}

func (c *collection) Insert(ctx context.Context, record multivarka.Document) (*multivarka.InsertResult, error) {
	res, err := c.coll.InsertOne(ctx, toBSON(record))
	if err != nil {
		return nil, err
	}
	return &multivarka.InsertResult{InsertedID: res.InsertedID}, nil
}

func (c *collection) Update(ctx context.Context, filter, update multivarka.Document, opts multivarka.UpdateOptions) (*multivarka.UpdateResult, error) {
	var (
		res *mongo.UpdateResult
		err error
	)
	if opts.Multi {
		res, err = c.coll.UpdateMany(ctx, toBSON(filter), toBSON(update))
	} else {
		res, err = c.coll.UpdateOne(ctx, toBSON(filter), toBSON(update))
	}
	if err != nil {
		return nil, err
	}
	return &multivarka.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (c *collection) Remove(ctx context.Context, filter multivarka.Document) (*multivarka.RemoveResult, error) {
	res, err := c.coll.DeleteMany(ctx, toBSON(filter))
	if err != nil {
		return nil, err
	}
	return &multivarka.RemoveResult{Removed: res.DeletedCount}, nil
}

type cursor struct {
	cur *mongo.Cursor
}

// All drains and closes the cursor
func (c *cursor) All(ctx context.Context) ([]multivarka.Document, error) {
	var raw []bson.M
	if err := c.cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	docs := make([]multivarka.Document, len(raw))
	for i, m := range raw {
		docs[i] = fromBSON(m)
	}
	return docs, nil
}

// IsDuplicateKey reports whether err, possibly wrapped in a
// *multivarka.ActionError, is a unique index violation
func IsDuplicateKey(err error) bool {
	var actionErr *multivarka.ActionError
	if errors.As(err, &actionErr) {
		err = actionErr.Err
	}
	return mongo.IsDuplicateKeyError(err)
}
