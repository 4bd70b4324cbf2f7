package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"

	"conference-central/model"
)

type memoryEntry struct {
	key     *model.Key
	doc     bson.Raw
	version uint64
}

// MemoryStore keeps BSON documents in process. Transactions are optimistic:
// reads record the version they saw, and commit fails with
// ErrConcurrentTransaction if any of them changed in between. The store lock
// is only held while reading or applying a commit, never while user code runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	nextID  int64

	retries uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		retries: defaultTxRetries,
	}
}

// WithRetries sets how many times a contended transaction is retried.
func (s *MemoryStore) WithRetries(n uint64) *MemoryStore {
	s.retries = n
	return s
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) lookup(path string) (*memoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[path]
	return e, ok
}

func (s *MemoryStore) Get(ctx context.Context, key *model.Key) (Record, error) {
	if err := checkKey(key); err != nil {
		return Record{}, err
	}
	e, ok := s.lookup(key.Path())
	if !ok {
		return Record{}, ErrNoSuchEntity
	}
	return e.record(), nil
}

func (s *MemoryStore) GetMulti(ctx context.Context, keys []*model.Key) ([]Record, error) {
	out := make([]Record, len(keys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, key := range keys {
		if err := checkKey(key); err != nil {
			return nil, err
		}
		out[i] = Record{Key: key}
		if e, ok := s.entries[key.Path()]; ok {
			out[i] = e.record()
		}
	}
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, key *model.Key, src any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	doc, err := bson.Marshal(src)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(key, doc)
	return nil
}

func (s *MemoryStore) apply(key *model.Key, doc bson.Raw) {
	path := key.Path()
	var version uint64 = 1
	if prev, ok := s.entries[path]; ok {
		version = prev.version + 1
	}
	s.entries[path] = &memoryEntry{key: key, doc: doc, version: version}
}

// AllocateID hands out ids from a single counter, so ids are unique across
// kinds and parents.
func (s *MemoryStore) AllocateID(ctx context.Context, kind string, parent *model.Key) (*model.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return model.IDKey(kind, s.nextID, parent), nil
}

func (s *MemoryStore) Run(ctx context.Context, q *Query) ([]Record, error) {
	entries, err := s.query(q)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = e.record()
	}
	return out, nil
}

func (s *MemoryStore) query(q *Query) ([]*memoryEntry, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var matched []*memoryEntry
	for _, e := range s.entries {
		if e.key.Kind != q.Kind {
			continue
		}
		if q.Ancestor != nil && !e.key.HasAncestor(q.Ancestor) {
			continue
		}
		if matchDocument(e.doc, q) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		for _, o := range q.Orders {
			c := compareValues(
				sortValue(lookupValue(matched[i].doc, o.Property), o.Descending),
				sortValue(lookupValue(matched[j].doc, o.Property), o.Descending))
			if o.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return matched[i].key.Path() < matched[j].key.Path()
	})
	return matched, nil
}

func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return retry.Do(ctx, txBackoff(s.retries), func(ctx context.Context) error {
		tx := &memoryTx{store: s, reads: make(map[string]uint64), writes: make(map[string]pendingWrite)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if err := tx.commit(); err != nil {
			if errors.Is(err, ErrConcurrentTransaction) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

func (e *memoryEntry) record() Record {
	doc := e.doc
	return Record{Key: e.key, decode: func(dst any) error { return bson.Unmarshal(doc, dst) }}
}

type pendingWrite struct {
	key *model.Key
	doc bson.Raw
}

type memoryTx struct {
	store *MemoryStore

	mu     sync.Mutex
	reads  map[string]uint64
	writes map[string]pendingWrite
	order  []string
}

func (t *memoryTx) observe(path string, e *memoryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.reads[path]; seen {
		return
	}
	if e == nil {
		t.reads[path] = 0
		return
	}
	t.reads[path] = e.version
}

func (t *memoryTx) pending(path string) (pendingWrite, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.writes[path]
	return w, ok
}

func (t *memoryTx) Get(ctx context.Context, key *model.Key) (Record, error) {
	if err := checkKey(key); err != nil {
		return Record{}, err
	}
	path := key.Path()
	if w, ok := t.pending(path); ok {
		doc := w.doc
		return Record{Key: key, decode: func(dst any) error { return bson.Unmarshal(doc, dst) }}, nil
	}
	e, ok := t.store.lookup(path)
	if !ok {
		t.observe(path, nil)
		return Record{}, ErrNoSuchEntity
	}
	t.observe(path, e)
	return e.record(), nil
}

func (t *memoryTx) GetMulti(ctx context.Context, keys []*model.Key) ([]Record, error) {
	out := make([]Record, len(keys))
	for i, key := range keys {
		rec, err := t.Get(ctx, key)
		switch {
		case errors.Is(err, ErrNoSuchEntity):
			out[i] = Record{Key: key}
		case err != nil:
			return nil, err
		default:
			out[i] = rec
		}
	}
	return out, nil
}

// Run inside a transaction sees committed data only and takes part in
// conflict detection for the entities it returns.
func (t *memoryTx) Run(ctx context.Context, q *Query) ([]Record, error) {
	entries, err := t.store.query(q)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(entries))
	for i, e := range entries {
		t.observe(e.key.Path(), e)
		out[i] = e.record()
	}
	return out, nil
}

func (t *memoryTx) Put(ctx context.Context, key *model.Key, src any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	doc, err := bson.Marshal(src)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	path := key.Path()
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.writes[path]; !ok {
		t.order = append(t.order, path)
	}
	t.writes[path] = pendingWrite{key: key, doc: doc}
	return nil
}

func (t *memoryTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, seen := range t.reads {
		var current uint64
		if e, ok := s.entries[path]; ok {
			current = e.version
		}
		if current != seen {
			return fmt.Errorf("%w: %s changed", ErrConcurrentTransaction, path)
		}
	}
	for _, path := range t.order {
		w := t.writes[path]
		s.apply(w.key, w.doc)
	}
	return nil
}

func matchDocument(doc bson.Raw, q *Query) bool {
	for _, o := range q.Orders {
		if lookupValue(doc, o.Property) == nil {
			return false
		}
	}
	for _, f := range q.Filters {
		if !matchFilter(lookupValue(doc, f.Property), f) {
			return false
		}
	}
	return true
}

func matchFilter(stored any, f Filter) bool {
	want := normalize(f.Value)
	candidates := []any{stored}
	if list, ok := stored.([]any); ok {
		candidates = list
	}
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if compareOp(compareValues(c, want), f.Op) {
			return true
		}
	}
	return false
}

func compareOp(c int, op Op) bool {
	switch op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpGreaterThan:
		return c > 0
	case OpGreaterOrEqual:
		return c >= 0
	case OpLessThan:
		return c < 0
	case OpLessOrEqual:
		return c <= 0
	}
	return false
}

// sortValue picks the element a list property sorts by: its smallest element
// ascending, its largest descending.
func sortValue(v any, descending bool) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	var best any
	for _, el := range list {
		if best == nil {
			best = el
			continue
		}
		c := compareValues(el, best)
		if (!descending && c < 0) || (descending && c > 0) {
			best = el
		}
	}
	return best
}

// lookupValue returns the property as a plain Go value: int64, float64,
// string, bool, time.Time, []any or nil when absent or null. An empty list
// counts as absent.
func lookupValue(doc bson.Raw, property string) any {
	rv, err := doc.LookupErr(property)
	if err != nil {
		return nil
	}
	return rawValue(rv)
}

func rawValue(rv bson.RawValue) any {
	switch rv.Type {
	case bson.TypeInt32:
		return int64(rv.Int32())
	case bson.TypeInt64:
		return rv.Int64()
	case bson.TypeDouble:
		return rv.Double()
	case bson.TypeString:
		return rv.StringValue()
	case bson.TypeBoolean:
		return rv.Boolean()
	case bson.TypeDateTime:
		return rv.Time()
	case bson.TypeArray:
		values, err := rv.Array().Values()
		if err != nil || len(values) == 0 {
			return nil
		}
		list := make([]any, 0, len(values))
		for _, el := range values {
			list = append(list, rawValue(el))
		}
		return list
	}
	return nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case float32:
		return float64(x)
	case float64:
		return x
	case string, bool, time.Time:
		return x
	case []string:
		list := make([]any, len(x))
		for i, s := range x {
			list[i] = s
		}
		return list
	}
	return v
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int64, float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	case time.Time:
		return 4
	}
	return 5
}

// compareValues orders values of different types by type first.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			return compareOrdered(x, y)
		}
		return compareOrdered(float64(x), b.(float64))
	case float64:
		if y, ok := b.(int64); ok {
			return compareOrdered(x, float64(y))
		}
		return compareOrdered(x, b.(float64))
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
