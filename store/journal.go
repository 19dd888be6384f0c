package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const journalCollection = "journals"

type mongoJournalStore struct {
	col *mongo.Collection
}

// NewMongoJournalStore connects to the journal database and verifies
// the connection with a ping.
func NewMongoJournalStore(uri, database string) (JournalStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &mongoJournalStore{
		col: client.Database(database).Collection(journalCollection),
	}, nil
}

func (s *mongoJournalStore) GetEntries(ctx context.Context, userID string, windowDays int) ([]JournalEntry, error) {
	since := time.Now().AddDate(0, 0, -windowDays)

	cursor, err := s.col.Find(ctx,
		bson.M{
			"userId": userID,
			"date":   bson.M{"$gte": since},
		},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []JournalEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
