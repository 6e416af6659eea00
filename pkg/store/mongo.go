package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

const (
	manifestsCollection = "manifests"
	versionsCollection  = "versions"
)

// mongoManifestDoc is the BSON schema of a stored manifest. Each PutManifest
// appends a new document; the newest by fetched_at is the latest.
type mongoManifestDoc struct {
	ID        string    `bson:"_id"`
	Release   string    `bson:"release"`
	Snapshot  string    `bson:"snapshot"`
	Count     int       `bson:"count"`
	Document  bson.Raw  `bson:"document"`
	FetchedAt time.Time `bson:"fetched_at"`
}

// mongoVersionDoc is the BSON schema of a stored version document. The
// document keeps the publisher's field names so it can be queried directly.
type mongoVersionDoc struct {
	ID          string    `bson:"_id"`
	Type        string    `bson:"type"`
	ReleaseTime time.Time `bson:"release_time"`
	Document    bson.Raw  `bson:"document"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// MongoStore implements Store backed by two MongoDB collections.
type MongoStore struct {
	Manifests *mongo.Collection
	Versions  *mongo.Collection

	// client is set when the store owns the connection.
	client *mongo.Client
}

// NewMongoStore creates a MongoStore on db. The caller owns the client
// lifecycle; Close is a no-op.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		Manifests: db.Collection(manifestsCollection),
		Versions:  db.Collection(versionsCollection),
	}
}

// DialMongo connects to uri, verifies the server answers and returns a store
// on database that closes the connection on Close.
func DialMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := NewMongoStore(client.Database(database))
	s.client = client
	return s, nil
}

// EnsureIndexes creates the indexes used by LatestManifest.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Manifests.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "fetched_at", Value: -1}},
	})
	return err
}

func (s *MongoStore) PutManifest(ctx context.Context, m *mojang.VersionManifest) error {
	raw, err := toBSON(m)
	if err != nil {
		return err
	}
	doc := mongoManifestDoc{
		ID:        uuid.New().String(),
		Release:   m.Latest.Release,
		Snapshot:  m.Latest.Snapshot,
		Count:     len(m.Versions),
		Document:  raw,
		FetchedAt: time.Now().UTC(),
	}
	_, err = s.Manifests.InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) LatestManifest(ctx context.Context) (*mojang.VersionManifest, error) {
	var doc mongoManifestDoc
	err := s.Manifests.FindOne(ctx, bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "fetched_at", Value: -1}}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, manifestNotFound()
		}
		return nil, err
	}
	var m mojang.VersionManifest
	if err := fromBSON(doc.Document, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) PutVersion(ctx context.Context, v *mojang.VersionDocument) error {
	if err := checkID(v.ID); err != nil {
		return err
	}
	raw, err := toBSON(v)
	if err != nil {
		return err
	}
	doc := mongoVersionDoc{
		ID:          v.ID,
		Type:        v.Type,
		ReleaseTime: v.ReleaseTime.UTC(),
		Document:    raw,
		UpdatedAt:   time.Now().UTC(),
	}
	_, err = s.Versions.ReplaceOne(ctx, bson.M{"_id": v.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) GetVersion(ctx context.Context, id string) (*mojang.VersionDocument, error) {
	var doc mongoVersionDoc
	err := s.Versions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, versionNotFound(id)
		}
		return nil, err
	}
	var v mojang.VersionDocument
	if err := fromBSON(doc.Document, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *MongoStore) ListVersions(ctx context.Context) ([]string, error) {
	cur, err := s.Versions.Find(ctx, bson.M{},
		options.Find().
			SetProjection(bson.M{"_id": 1}).
			SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// Close disconnects the client if the store opened it.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// toBSON converts v to BSON through its JSON form, keeping JSON field names.
func toBSON(v any) (bson.Raw, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("convert to bson: %w", err)
	}
	return bson.Marshal(d)
}

// fromBSON is the inverse of toBSON.
func fromBSON(raw bson.Raw, v any) error {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return fmt.Errorf("convert from bson: %w", err)
	}
	return json.Unmarshal(data, v)
}

var _ Store = (*MongoStore)(nil)
