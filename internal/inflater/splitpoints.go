package inflater

import (
	"context"

	"github.com/10gen/data-inflater/internal/util"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// $type names of the field types worth pre-splitting on. Low-cardinality
// types such as bool are absent.
var splittableTypes = mapset.NewSet(
	"string",
	"date",
	"int",
	"double",
	"long",
	"timestamp",
	"decimal",
)

// IsSplittableType indicates whether a field whose $type is typeName can
// yield useful range split points.
func IsSplittableType(typeName string) bool {
	return splittableTypes.Contains(typeName)
}

// AnalyzeSplitPoints samples the source collection to find range split
// points for the first shard key field. It returns an empty slice if no
// key fields are given or if the field’s type isn’t splittable.
//
// The trailing key fields play no part here; the provisioner fills them
// with MaxKey.
func AnalyzeSplitPoints(
	ctx context.Context,
	coll *mongo.Collection,
	keyFields []string,
	bucketCount int,
) ([]bson.RawValue, error) {
	if len(keyFields) == 0 {
		return nil, nil
	}

	splitField := keyFields[0]

	typeName, err := probeFieldType(ctx, coll, splitField)
	if err != nil {
		return nil, err
	}

	if !IsSplittableType(typeName) {
		return nil, nil
	}

	cursor, err := coll.Aggregate(ctx, splitPointsPipeline(splitField, bucketCount))
	if err != nil {
		return nil, errors.Wrapf(
			err,
			"failed to bucket %#q by %#q",
			util.FullName(coll),
			splitField,
		)
	}

	var results []struct {
		SplitPoints []bson.RawValue `bson:"splitPoints"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrapf(
			err,
			"failed to read %#q’s split points for %#q",
			util.FullName(coll),
			splitField,
		)
	}

	if len(results) == 0 {
		return nil, nil
	}

	return FilterSplitPoints(results[0].SplitPoints), nil
}

// FilterSplitPoints drops null and undefined bucket boundaries.
func FilterSplitPoints(points []bson.RawValue) []bson.RawValue {
	return lo.Filter(points, func(p bson.RawValue, _ int) bool {
		return p.Type != bson.TypeNull && p.Type != bson.TypeUndefined && p.Type != 0
	})
}

func probeFieldType(ctx context.Context, coll *mongo.Collection, field string) (string, error) {
	cursor, err := coll.Aggregate(ctx, mongo.Pipeline{
		{{"$limit", 1}},
		{{"$project", bson.D{
			{"_id", 0},
			{"type", bson.D{{"$type", "$" + field}}},
		}}},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to probe type of %#q in %#q", field, util.FullName(coll))
	}

	var probes []struct {
		Type string `bson:"type"`
	}
	if err := cursor.All(ctx, &probes); err != nil {
		return "", errors.Wrapf(err, "failed to read type of %#q in %#q", field, util.FullName(coll))
	}

	if len(probes) == 0 {
		return "missing", nil
	}

	return probes[0].Type, nil
}

func splitPointsPipeline(field string, bucketCount int) mongo.Pipeline {
	return mongo.Pipeline{
		{{"$bucketAuto", bson.D{
			{"groupBy", "$" + field},
			{"buckets", bucketCount},
		}}},
		{{"$group", bson.D{
			{"_id", ""},
			{"splitsCount", bson.D{{"$sum", 1}}},
			{"splitPoints", bson.D{{"$push", "$_id.min"}}},
		}}},
		{{"$unset", "_id"}},
	}
}
