// Package database holds the entity store: a transactional document store
// keyed by hierarchical model.Key values, with ancestor and property queries.
// Three drivers implement it: an in-process store, MongoDB and PostgreSQL.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"conference-central/config"
	"conference-central/model"
)

var (
	ErrNoSuchEntity          = errors.New("no such entity")
	ErrConcurrentTransaction = errors.New("concurrent transaction")
	ErrIncompleteKey         = errors.New("incomplete key")
)

type Op string

const (
	OpEqual          Op = "="
	OpGreaterThan    Op = ">"
	OpGreaterOrEqual Op = ">="
	OpLessThan       Op = "<"
	OpLessOrEqual    Op = "<="
	OpNotEqual       Op = "!="
)

func (o Op) Valid() bool {
	switch o {
	case OpEqual, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpNotEqual:
		return true
	}
	return false
}

// Filter matches a property against a value. When the stored property is a
// list, the filter matches if any element does.
type Filter struct {
	Property string
	Op       Op
	Value    any
}

// Order sorts on a property. Entities lacking the property are excluded from
// the result, and ties are broken by key path.
type Order struct {
	Property   string
	Descending bool
}

type Query struct {
	Kind     string
	Ancestor *model.Key
	Filters  []Filter
	Orders   []Order
}

func NewQuery(kind string) *Query {
	return &Query{Kind: kind}
}

func (q *Query) WithAncestor(key *model.Key) *Query {
	q.Ancestor = key
	return q
}

func (q *Query) Filter(property string, op Op, value any) *Query {
	q.Filters = append(q.Filters, Filter{Property: property, Op: op, Value: value})
	return q
}

func (q *Query) Order(property string) *Query {
	q.Orders = append(q.Orders, Order{Property: property})
	return q
}

func (q *Query) OrderDesc(property string) *Query {
	q.Orders = append(q.Orders, Order{Property: property, Descending: true})
	return q
}

func (q *Query) validate() error {
	if q.Kind == "" {
		return errors.New("query without kind")
	}
	for _, f := range q.Filters {
		if !f.Op.Valid() {
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	return nil
}

// Record is one stored entity as returned by a read. A record for a missing
// key is not Found and fails to Decode with ErrNoSuchEntity.
type Record struct {
	Key    *model.Key
	decode func(dst any) error
}

func (r Record) Found() bool { return r.decode != nil }

func (r Record) Decode(dst model.Entity) error {
	if r.decode == nil {
		return ErrNoSuchEntity
	}
	if err := r.decode(dst); err != nil {
		return fmt.Errorf("decoding %s: %w", r.Key, err)
	}
	dst.SetKey(r.Key)
	return nil
}

type Reader interface {
	// Get returns ErrNoSuchEntity when nothing is stored under key.
	Get(ctx context.Context, key *model.Key) (Record, error)
	// GetMulti returns one record per key, in key order.
	GetMulti(ctx context.Context, keys []*model.Key) ([]Record, error)
	Run(ctx context.Context, q *Query) ([]Record, error)
}

type Writer interface {
	// Put stores src under a complete key, replacing any previous entity.
	Put(ctx context.Context, key *model.Key, src any) error
}

// Tx is the handle passed to a transaction function. Reads inside a
// transaction take part in its conflict detection.
type Tx interface {
	Reader
	Writer
}

type Store interface {
	Reader
	Writer

	// AllocateID reserves a fresh integer id for kind under parent.
	AllocateID(ctx context.Context, kind string, parent *model.Key) (*model.Key, error)

	// RunInTransaction runs fn atomically. Contention is retried, so fn may
	// run more than once and must not have side effects outside tx. Errors
	// returned by fn abort the transaction and are returned unchanged.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close(ctx context.Context) error
}

// Load reads and decodes a single entity.
func Load[T any, P interface {
	*T
	model.Entity
}](ctx context.Context, r Reader, key *model.Key) (P, error) {
	rec, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v T
	p := P(&v)
	if err := rec.Decode(p); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadMulti decodes one entity per key. Missing entities come back as nil.
func LoadMulti[T any, P interface {
	*T
	model.Entity
}](ctx context.Context, r Reader, keys []*model.Key) ([]P, error) {
	recs, err := r.GetMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]P, len(recs))
	for i, rec := range recs {
		if !rec.Found() {
			continue
		}
		var v T
		p := P(&v)
		if err := rec.Decode(p); err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// RunQuery runs q and decodes every result.
func RunQuery[T any, P interface {
	*T
	model.Entity
}](ctx context.Context, r Reader, q *Query) ([]P, error) {
	recs, err := r.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]P, 0, len(recs))
	for _, rec := range recs {
		var v T
		p := P(&v)
		if err := rec.Decode(p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// OpenStore connects the driver named in cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "mongo":
		return NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres.DSN)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

const (
	defaultTxRetries = 32
	txBackoffBase    = 2 * time.Millisecond
	txBackoffCap     = 50 * time.Millisecond
)

// txBackoff is the retry schedule for contended transactions.
func txBackoff(retries uint64) retry.Backoff {
	b := retry.NewExponential(txBackoffBase)
	b = retry.WithCappedDuration(txBackoffCap, b)
	b = retry.WithJitterPercent(25, b)
	return retry.WithMaxRetries(retries, b)
}

func checkKey(key *model.Key) error {
	if key == nil || key.Incomplete() {
		return ErrIncompleteKey
	}
	return nil
}
