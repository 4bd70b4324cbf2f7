package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"conference-central/model"
)

const (
	countersCollection = "counters"
	ancestorsField     = "_ancestors"
	entityCounterID    = "entities"
)

var mongoOps = map[Op]string{
	OpEqual:          "$eq",
	OpGreaterThan:    "$gt",
	OpGreaterOrEqual: "$gte",
	OpLessThan:       "$lt",
	OpLessOrEqual:    "$lte",
	OpNotEqual:       "$ne",
}

// MongoStore keeps one collection per kind. Documents carry the key path as
// _id and the paths of all ancestors in _ancestors. Transactions need a
// replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the db: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("db is not available: %w", err)
	}
	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(model.KindConference).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: ancestorsField, Value: 1}, {Key: model.PropName, Value: 1}},
			Options: options.Index().SetName("conference_ancestors_name"),
		},
		{
			Keys:    bson.D{{Key: model.PropSeatsAvailable, Value: 1}, {Key: model.PropName, Value: 1}},
			Options: options.Index().SetName("conference_seats_name"),
		},
		{
			Keys:    bson.D{{Key: model.PropCity, Value: 1}, {Key: model.PropName, Value: 1}},
			Options: options.Index().SetName("conference_city_name"),
		},
	})
	if err != nil {
		return fmt.Errorf("conference indexes: %w", err)
	}

	_, err = s.db.Collection(model.KindSession).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: ancestorsField, Value: 1}, {Key: model.PropTypeOfSession, Value: 1}},
			Options: options.Index().SetName("session_ancestors_type"),
		},
		{
			Keys:    bson.D{{Key: model.PropSpeaker, Value: 1}},
			Options: options.Index().SetName("session_speaker"),
		},
	})
	if err != nil {
		return fmt.Errorf("session indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, key *model.Key) (Record, error) {
	if err := checkKey(key); err != nil {
		return Record{}, err
	}
	raw, err := s.db.Collection(key.Kind).FindOne(ctx, bson.D{{Key: "_id", Value: key.Path()}}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNoSuchEntity
		}
		return Record{}, fmt.Errorf("db error: %w", err)
	}
	return rawRecord(key, raw), nil
}

func (s *MongoStore) GetMulti(ctx context.Context, keys []*model.Key) ([]Record, error) {
	byKind := make(map[string][]string)
	for _, key := range keys {
		if err := checkKey(key); err != nil {
			return nil, err
		}
		byKind[key.Kind] = append(byKind[key.Kind], key.Path())
	}

	found := make(map[string]bson.Raw, len(keys))
	for kind, paths := range byKind {
		cur, err := s.db.Collection(kind).Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: paths}}}})
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		for cur.Next(ctx) {
			raw := make(bson.Raw, len(cur.Current))
			copy(raw, cur.Current)
			found[raw.Lookup("_id").StringValue()] = raw
		}
		err = cur.Err()
		cur.Close(ctx)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}

	out := make([]Record, len(keys))
	for i, key := range keys {
		out[i] = Record{Key: key}
		if raw, ok := found[key.Path()]; ok {
			out[i] = rawRecord(key, raw)
		}
	}
	return out, nil
}

func (s *MongoStore) Run(ctx context.Context, q *Query) ([]Record, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	filter, findOpts := mongoQuery(q)
	cur, err := s.db.Collection(q.Kind).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cur.Close(ctx)

	var out []Record
	for cur.Next(ctx) {
		raw := make(bson.Raw, len(cur.Current))
		copy(raw, cur.Current)
		key, err := model.ParsePath(raw.Lookup("_id").StringValue())
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rawRecord(key, raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// mongoQuery translates q. Each filter becomes its own $and clause so several
// conditions on one property do not collide. Ordered properties must exist.
func mongoQuery(q *Query) (bson.D, *options.FindOptions) {
	filter := bson.D{}
	if q.Ancestor != nil {
		filter = append(filter, bson.E{Key: ancestorsField, Value: q.Ancestor.Path()})
	}
	var clauses bson.A
	for _, f := range q.Filters {
		clauses = append(clauses, bson.D{{Key: f.Property, Value: bson.D{{Key: mongoOps[f.Op], Value: f.Value}}}})
	}
	sort := bson.D{}
	for _, o := range q.Orders {
		clauses = append(clauses, bson.D{{Key: o.Property, Value: bson.D{{Key: "$ne", Value: nil}}}})
		dir := 1
		if o.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Property, Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})
	if len(clauses) > 0 {
		filter = append(filter, bson.E{Key: "$and", Value: clauses})
	}
	return filter, options.Find().SetSort(sort)
}

func (s *MongoStore) Put(ctx context.Context, key *model.Key, src any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	doc, err := mongoDocument(key, src)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(key.Kind).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key.Path()}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *MongoStore) AllocateID(ctx context.Context, kind string, parent *model.Key) (*model.Key, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: entityCounterID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return model.IDKey(kind, counter.Seq, parent), nil
}

// RunInTransaction uses the driver's transaction loop, which retries on
// transient errors such as write conflicts.
func (s *MongoStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer session.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &mongoTx{store: s, session: session})
	}, txOpts)
	return err
}

// mongoTx binds every call to the transaction's session whatever context the
// caller passes in.
type mongoTx struct {
	store   *MongoStore
	session mongo.Session
}

func (t *mongoTx) bind(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, t.session)
}

func (t *mongoTx) Get(ctx context.Context, key *model.Key) (Record, error) {
	return t.store.Get(t.bind(ctx), key)
}

func (t *mongoTx) GetMulti(ctx context.Context, keys []*model.Key) ([]Record, error) {
	return t.store.GetMulti(t.bind(ctx), keys)
}

func (t *mongoTx) Run(ctx context.Context, q *Query) ([]Record, error) {
	return t.store.Run(t.bind(ctx), q)
}

func (t *mongoTx) Put(ctx context.Context, key *model.Key, src any) error {
	return t.store.Put(t.bind(ctx), key, src)
}

func mongoDocument(key *model.Key, src any) (bson.D, error) {
	raw, err := bson.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}
	doc := bson.D{
		{Key: "_id", Value: key.Path()},
		{Key: ancestorsField, Value: key.Ancestors()},
	}
	return append(doc, fields...), nil
}

func rawRecord(key *model.Key, raw bson.Raw) Record {
	return Record{Key: key, decode: func(dst any) error { return bson.Unmarshal(raw, dst) }}
}
