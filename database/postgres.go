package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"conference-central/database/migrations"
	"conference-central/model"
)

var propertyName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// PostgresStore keeps every entity as a jsonb document in one table.
// Transactions run at serializable isolation and lock the rows they read;
// serialization failures are retried.
type PostgresStore struct {
	pgQueries
	db      *sql.DB
	retries uint64
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db is not available: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return newPostgresStore(db), nil
}

func newPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{pgQueries: pgQueries{q: db}, db: db, retries: defaultTxRetries}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

func (s *PostgresStore) AllocateID(ctx context.Context, kind string, parent *model.Key) (*model.Key, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('entity_ids')`).Scan(&id); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return model.IDKey(kind, id, parent), nil
}

func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return retry.Do(ctx, txBackoff(s.retries), func(ctx context.Context) error {
		err := WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx DBTX) error {
			return fn(ctx, pgQueries{q: tx, forUpdate: true})
		})
		if isSerializationFailure(err) {
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrConcurrentTransaction, err))
		}
		return err
	})
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// pgQueries implements Reader and Writer over a connection or a transaction.
type pgQueries struct {
	q         DBTX
	forUpdate bool
}

func (p pgQueries) lockClause() string {
	if p.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func (p pgQueries) Get(ctx context.Context, key *model.Key) (Record, error) {
	if err := checkKey(key); err != nil {
		return Record{}, err
	}
	var data []byte
	err := p.q.QueryRowContext(ctx, `SELECT data FROM entities WHERE path = $1`+p.lockClause(), key.Path()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNoSuchEntity
		}
		return Record{}, fmt.Errorf("db error: %w", err)
	}
	return jsonRecord(key, data), nil
}

func (p pgQueries) GetMulti(ctx context.Context, keys []*model.Key) ([]Record, error) {
	out := make([]Record, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		if err := checkKey(key); err != nil {
			return nil, err
		}
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = key.Path()
	}

	rows, err := p.q.QueryContext(ctx,
		`SELECT path, data FROM entities WHERE path IN (`+strings.Join(placeholders, ", ")+`)`+p.lockClause(), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	found := make(map[string][]byte, len(keys))
	for rows.Next() {
		var path string
		var data []byte
		if err := rows.Scan(&path, &data); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		found[path] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	for i, key := range keys {
		out[i] = Record{Key: key}
		if data, ok := found[key.Path()]; ok {
			out[i] = jsonRecord(key, data)
		}
	}
	return out, nil
}

func (p pgQueries) Run(ctx context.Context, q *Query) ([]Record, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var path string
		var data []byte
		if err := rows.Scan(&path, &data); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		key, err := model.ParsePath(path)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, jsonRecord(key, data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (p pgQueries) Put(ctx context.Context, key *model.Key, src any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	_, err = p.q.ExecContext(ctx,
		`INSERT INTO entities (path, kind, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data`,
		key.Path(), key.Kind, string(data))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// elementsOf expands a property into a row per element, so scalar and list
// properties are filtered and sorted alike. Nulls are dropped.
func elementsOf(property string) string {
	return fmt.Sprintf(`jsonb_array_elements(CASE jsonb_typeof(data->'%[1]s') WHEN 'array' THEN data->'%[1]s' ELSE jsonb_build_array(data->'%[1]s') END) AS e(v) WHERE jsonb_typeof(e.v) <> 'null'`, property)
}

func sortExpr(o Order) string {
	dir := "ASC"
	if o.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(`(SELECT e.v FROM %s ORDER BY e.v %s LIMIT 1)`, elementsOf(o.Property), dir)
}

// buildSelect renders q as SQL. Property names are inlined after validation;
// values are always bound.
func buildSelect(q *Query) (string, []any, error) {
	if err := q.validate(); err != nil {
		return "", nil, err
	}
	args := []any{q.Kind}
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	where := []string{"kind = $1"}
	if q.Ancestor != nil {
		path := q.Ancestor.Path()
		where = append(where, fmt.Sprintf("(path = %s OR starts_with(path, %s))", bind(path), bind(path+"/")))
	}
	for _, f := range q.Filters {
		if !propertyName.MatchString(f.Property) {
			return "", nil, fmt.Errorf("invalid property %q", f.Property)
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("encoding filter value: %w", err)
		}
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM %s AND e.v %s %s::jsonb)",
			elementsOf(f.Property), f.Op, bind(string(value))))
	}

	orders := make([]string, 0, len(q.Orders)+1)
	for _, o := range q.Orders {
		if !propertyName.MatchString(o.Property) {
			return "", nil, fmt.Errorf("invalid property %q", o.Property)
		}
		expr := sortExpr(o)
		where = append(where, expr+" IS NOT NULL")
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		orders = append(orders, expr+" "+dir)
	}
	orders = append(orders, "path ASC")

	query := "SELECT path, data FROM entities WHERE " + strings.Join(where, " AND ") +
		" ORDER BY " + strings.Join(orders, ", ")
	return query, args, nil
}

func jsonRecord(key *model.Key, data []byte) Record {
	return Record{Key: key, decode: func(dst any) error { return json.Unmarshal(data, dst) }}
}
