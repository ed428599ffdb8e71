package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bandmate/backend/internal/graph"
	"github.com/bandmate/backend/internal/models"
)

const mongoIDField = "_id"

// MongoStore maps each kind to a MongoDB collection and every Update to a
// single UpdateOne, which MongoDB applies atomically per document.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore constructs a document store backed by MongoDB.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates an index on every reference field so FindIDs does
// not scan whole collections, plus a lookup index on user emails.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for kind, idx := range indexModels() {
		if _, err := s.collection(kind).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", kind, err)
		}
	}
	return nil
}

func indexModels() map[models.Kind][]mongo.IndexModel {
	out := make(map[models.Kind][]mongo.IndexModel)
	for _, kind := range models.Kinds {
		for _, f := range graph.Fields(kind) {
			out[kind] = append(out[kind], mongo.IndexModel{
				Keys:    bson.D{{Key: f.Name, Value: 1}},
				Options: options.Index().SetName(f.Name + "_ref"),
			})
		}
	}
	out[models.KindUser] = append(out[models.KindUser], mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_lookup"),
	})
	return out
}

func (s *MongoStore) collection(kind models.Kind) *mongo.Collection {
	return s.db.Collection(string(kind))
}

// Get loads a single document.
func (s *MongoStore) Get(ctx context.Context, kind models.Kind, id string) (models.Document, error) {
	var raw bson.M
	err := s.collection(kind).FindOne(ctx, bson.M{mongoIDField: id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s document: %w", kind, err)
	}
	return fromBSON(raw), nil
}

// Create inserts a new document.
func (s *MongoStore) Create(ctx context.Context, kind models.Kind, doc models.Document) (string, error) {
	body := toBSON(doc)
	id, _ := body[mongoIDField].(string)
	if id == "" {
		id = uuid.NewString()
		body[mongoIDField] = id
	}

	if _, err := s.collection(kind).InsertOne(ctx, body); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert %s document: %w", kind, err)
	}
	return id, nil
}

// Update translates u into MongoDB update operators.
func (s *MongoStore) Update(ctx context.Context, kind models.Kind, id string, u Update) error {
	update, err := buildUpdate(u)
	if err != nil {
		return err
	}

	if u.IsZero() {
		n, err := s.collection(kind).CountDocuments(ctx, bson.M{mongoIDField: id}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("count %s document: %w", kind, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	res, err := s.collection(kind).UpdateOne(ctx, bson.M{mongoIDField: id}, update)
	if err != nil {
		return fmt.Errorf("update %s document: %w", kind, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a single document.
func (s *MongoStore) Delete(ctx context.Context, kind models.Kind, id string) error {
	res, err := s.collection(kind).DeleteOne(ctx, bson.M{mongoIDField: id})
	if err != nil {
		return fmt.Errorf("delete %s document: %w", kind, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindIDs relies on MongoDB matching a scalar filter against array members.
func (s *MongoStore) FindIDs(ctx context.Context, kind models.Kind, field, value string) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{mongoIDField: 1}).
		SetSort(bson.D{{Key: mongoIDField, Value: 1}})

	cur, err := s.collection(kind).Find(ctx, bson.M{field: value}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s references: %w", kind, err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode %s id: %w", kind, err)
		}
		ids = append(ids, row.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s references: %w", kind, err)
	}
	return ids, nil
}

// List returns documents of kind ordered by id.
func (s *MongoStore) List(ctx context.Context, kind models.Kind, limit int) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: mongoIDField, Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.collection(kind).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s documents: %w", kind, err)
	}
	defer cur.Close(ctx)

	var docs []models.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", kind, err)
		}
		docs = append(docs, fromBSON(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s documents: %w", kind, err)
	}
	return docs, nil
}

// buildUpdate renders u as an update document. Set-inserts become $addToSet,
// plain pushes $push and removals $pull with $in so repeated values collapse.
func buildUpdate(u Update) (bson.M, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	update := bson.M{}
	if len(u.Set) > 0 {
		set := bson.M{}
		for field, value := range u.Set {
			set[field] = value
		}
		update["$set"] = set
	}
	if len(u.Unset) > 0 {
		unset := bson.M{}
		for _, field := range u.Unset {
			unset[field] = ""
		}
		update["$unset"] = unset
	}

	if len(u.Push) > 0 {
		type pushGroup struct {
			dedup  bool
			values bson.A
		}
		groups := make(map[string]*pushGroup)
		var order []string
		for _, op := range u.Push {
			g, ok := groups[op.Field]
			if !ok {
				g = &pushGroup{dedup: op.Dedup}
				groups[op.Field] = g
				order = append(order, op.Field)
			} else if g.dedup != op.Dedup {
				return nil, fmt.Errorf("%w: %s mixes set-insert and push", errFieldConflict, op.Field)
			}
			g.values = append(g.values, op.Value)
		}

		addToSet, push := bson.M{}, bson.M{}
		for _, field := range order {
			g := groups[field]
			if g.dedup {
				addToSet[field] = bson.M{"$each": g.values}
			} else {
				push[field] = bson.M{"$each": g.values}
			}
		}
		if len(addToSet) > 0 {
			update["$addToSet"] = addToSet
		}
		if len(push) > 0 {
			update["$push"] = push
		}
	}

	if len(u.Pull) > 0 {
		pull := bson.M{}
		for _, op := range u.Pull {
			in, ok := pull[op.Field].(bson.M)
			if !ok {
				in = bson.M{"$in": bson.A{}}
				pull[op.Field] = in
			}
			in["$in"] = append(in["$in"].(bson.A), op.Value)
		}
		update["$pull"] = pull
	}

	return update, nil
}

func toBSON(doc models.Document) bson.M {
	out := bson.M{}
	for k, v := range doc.Clone() {
		if k == models.IDField {
			out[mongoIDField] = v
			continue
		}
		out[k] = v
	}
	return out
}

func fromBSON(raw bson.M) models.Document {
	doc := models.Document{}
	for k, v := range raw {
		if k == mongoIDField {
			doc[models.IDField] = normalizeBSON(v)
			continue
		}
		doc[k] = normalizeBSON(v)
	}
	return doc
}

// normalizeBSON converts driver container types into the plain maps and
// slices the rest of the service works with.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeBSON(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeBSON(item)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}

var _ Store = (*MongoStore)(nil)
