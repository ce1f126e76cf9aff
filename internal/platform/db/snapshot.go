package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Snapshot records the current value of keys on the document so that a
// compensating rollback can restore them. Keys absent from the document are
// removed again on rollback. Outside a compensating unit of work it does
// nothing.
func Snapshot(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, keys []string) error {
	if !Compensating(ctx) {
		return nil
	}
	var prev bson.M
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&prev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", coll.Name(), err)
	}
	restore, drop := bson.M{}, bson.M{}
	for _, k := range keys {
		if v, ok := prev[k]; ok {
			restore[k] = v
		} else {
			drop[k] = ""
		}
	}
	OnRollback(ctx, func(ctx context.Context) error {
		_, err := coll.UpdateOne(ctx, bson.M{"_id": id}, restoreUpdate(restore, drop))
		return err
	})
	return nil
}

func restoreUpdate(restore, drop bson.M) bson.M {
	undo := bson.M{}
	if len(restore) > 0 {
		undo["$set"] = restore
	}
	if len(drop) > 0 {
		undo["$unset"] = drop
	}
	return undo
}

// UpdateKeys lists the fields touched by a $set and $unset pair.
func UpdateKeys(set bson.M, unset []string) []string {
	keys := append([]string(nil), unset...)
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}
