package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tortaapp/tradewatch/tradewatch/services"
)

type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// profileDocument is one trader in the profiles collection, keyed by nick.
type profileDocument struct {
	Nick         string          `bson:"_id"`
	Server       string          `bson:"server"`
	HasLink      bool            `bson:"hasLink"`
	ExternalLink string          `bson:"externalLink,omitempty"`
	LastSeenAny  int64           `bson:"lastSeenAny"`
	Services     []entryDocument `bson:"services"`
	UpdatedAt    time.Time       `bson:"updatedAt"`
}

type entryDocument struct {
	Category      string `bson:"category"`
	LastSeen      int64  `bson:"lastSeen"`
	EvidenceCount int    `bson:"evidenceCount"`
	LastEvidence  string `bson:"lastEvidence"`
}

// MongoStore keeps one document per trader. Save replaces the whole set:
// every profile is upserted and traders no longer present are deleted.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	name := cfg.Collection
	if name == "" {
		name = "service_profiles"
	}
	return &MongoStore{client: client, coll: client.Database(cfg.Database).Collection(name)}, nil
}

func (m *MongoStore) Load(ctx context.Context) ([]services.Profile, error) {
	cur, err := m.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer cur.Close(ctx)

	var profiles []services.Profile
	for cur.Next(ctx) {
		var doc profileDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode profile: %w", err)
		}
		profiles = append(profiles, fromDocument(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, services.ErrNoProfiles
	}
	return profiles, nil
}

func (m *MongoStore) Save(ctx context.Context, profiles []services.Profile) error {
	now := time.Now().UTC()
	nicks := make(bson.A, 0, len(profiles))
	writes := make([]mongo.WriteModel, 0, len(profiles)+1)
	for _, p := range profiles {
		doc := toDocument(p, now)
		nicks = append(nicks, doc.Nick)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.Nick}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	writes = append(writes, mongo.NewDeleteManyModel().
		SetFilter(bson.M{"_id": bson.M{"$nin": nicks}}))

	if _, err := m.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func toDocument(p services.Profile, now time.Time) profileDocument {
	doc := profileDocument{
		Nick:         p.Nick,
		Server:       p.Server,
		HasLink:      p.HasLink,
		ExternalLink: p.ExternalLink,
		LastSeenAny:  p.LastSeenAny,
		Services:     make([]entryDocument, len(p.Services)),
		UpdatedAt:    now,
	}
	for i, e := range p.Services {
		doc.Services[i] = entryDocument{
			Category:      string(e.Category),
			LastSeen:      e.LastSeen,
			EvidenceCount: e.EvidenceCount,
			LastEvidence:  e.LastEvidence,
		}
	}
	return doc
}

func fromDocument(doc profileDocument) services.Profile {
	p := services.Profile{
		Nick:         doc.Nick,
		Server:       doc.Server,
		HasLink:      doc.HasLink,
		ExternalLink: doc.ExternalLink,
		LastSeenAny:  doc.LastSeenAny,
		Services:     make([]services.Entry, len(doc.Services)),
	}
	for i, e := range doc.Services {
		p.Services[i] = services.Entry{
			Category:      services.Category(e.Category),
			LastSeen:      e.LastSeen,
			EvidenceCount: e.EvidenceCount,
			LastEvidence:  e.LastEvidence,
		}
	}
	return p
}
