package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	CollectionUsers       = "users"
	CollectionStudents    = "students"
	CollectionAssignments = "assignments"
	CollectionSubmissions = "assignmentsubmissions"
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
}

func NewMongo(ctx context.Context, cfg Config) (*Mongo, error) {
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open mongo connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	database := client.Database(cfg.Database)
	if err := EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Mongo{client: client, database: database}, nil
}

// EnsureIndexes creates the indexes the repositories rely on. The compound
// unique index on submissions makes creation an atomic insert-if-absent.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_unique"),
			},
		},
		CollectionSubmissions: {
			{
				Keys: bson.D{
					{Key: "assignment", Value: 1},
					{Key: "student", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("assignment_student_unique"),
			},
			{
				Keys:    bson.D{{Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("created_at"),
			},
		},
		CollectionAssignments: {
			{
				Keys:    bson.D{{Key: "trainer", Value: 1}},
				Options: options.Index().SetName("trainer"),
			},
			{
				Keys:    bson.D{{Key: "course", Value: 1}},
				Options: options.Index().SetName("course"),
			},
		},
	}

	for _, name := range []string{CollectionUsers, CollectionSubmissions, CollectionAssignments} {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, indexes[name]); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}

	return nil
}

func (m *Mongo) Database() *mongo.Database {
	return m.database
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
