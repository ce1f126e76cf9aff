package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

// DefaultDatabase is used when neither MONGO_DB nor the URI path name one.
const DefaultDatabase = "sigepren_db"

var (
	// ErrNotFound is returned by repositories when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned by repositories when a unique index rejects
	// a write.
	ErrDuplicate = errors.New("duplicate key")
)

// Connect opens a client, verifies it with a ping and resolves the database.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	if database == "" {
		database = DatabaseFromURI(uri)
	}
	return client, client.Database(database), nil
}

// DatabaseFromURI returns the database named in the URI path, or
// DefaultDatabase.
func DatabaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultDatabase
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return DefaultDatabase
	}
	return name
}

// Duplicate converts a unique index violation into ErrDuplicate, keeping the
// driver error in the chain.
func Duplicate(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// ParseObjectID parses a hex identifier coming from a request.
func ParseObjectID(value, field string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		return primitive.NilObjectID, apperr.Validationf("%s no es un ObjectId válido", field)
	}
	return oid, nil
}

// NotFound converts the driver's no-documents error into ErrNotFound.
func NotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
