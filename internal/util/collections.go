package util

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// FullName returns the collection's full namespace.
func FullName(collection *mongo.Collection) string {
	return collection.Database().Name() + "." + collection.Name()
}
