package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dimasfr/gudangbot/internal/domain/models"
)

// MongoDBArchive keeps a queryable long-term copy of the audit trail. The
// spreadsheet log sheets stay authoritative; this archive exists for
// reporting beyond what a sheet comfortably holds.
type MongoDBArchive struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBArchive creates a new MongoDB archive.
func NewMongoDBArchive(ctx context.Context, uri string, dbName string) (*MongoDBArchive, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBArchive{
		client: client,
		dbName: dbName,
	}, nil
}

// ArchiveChange stores a copy of an audit entry.
func (r *MongoDBArchive) ArchiveChange(ctx context.Context, entry models.AuditLogEntry) error {
	collection := r.client.Database(r.dbName).Collection("change_log")
	if _, err := collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert change entry: %w", err)
	}
	return nil
}

// ArchiveConsumption stores a copy of a consumption entry.
func (r *MongoDBArchive) ArchiveConsumption(ctx context.Context, entry models.ConsumptionLogEntry) error {
	collection := r.client.Database(r.dbName).Collection("consumption_log")
	if _, err := collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert consumption entry: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBArchive) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
