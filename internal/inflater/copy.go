package inflater

import (
	"context"
	"fmt"

	"github.com/10gen/data-inflater/mmongo"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Connector opens store connections. Every batch worker connects through
// its own client so that no connection is shared across workers.
type Connector struct {
	uri   string
	runID uuid.UUID
}

// NewConnector validates uri and returns a Connector for it. runID tags
// each client’s app name so that a run’s connections can be picked out
// of the server’s logs.
func NewConnector(uri string, runID uuid.UUID) (*Connector, error) {
	if _, _, err := mmongo.MaybeAddDirectConnection(uri); err != nil {
		return nil, err
	}

	return &Connector{uri: uri, runID: runID}, nil
}

// Connect returns a new client. The caller must disconnect it.
func (c *Connector) Connect(ctx context.Context, purpose string) (*mongo.Client, error) {
	_, opts, err := mmongo.MaybeAddDirectConnection(c.uri)
	if err != nil {
		return nil, err
	}

	opts.SetAppName(fmt.Sprintf("data-inflater %s (%s)", c.runID, purpose))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect (%s)", purpose)
	}

	return client, nil
}

// CopyBatch appends up to limit of src’s documents to dst. Each copy gets
// a new server-assigned _id. The copy is insert-only: a colliding _id
// fails the whole batch.
func CopyBatch(
	ctx context.Context,
	client *mongo.Client,
	dbName, src, dst string,
	limit int64,
) error {
	cursor, err := client.Database(dbName).Collection(src).Aggregate(ctx, copyPipeline(dst, limit))
	if err != nil {
		return errors.Wrapf(
			err,
			"failed to copy %d documents from %#q to %#q",
			limit,
			dbName+"."+src,
			dbName+"."+dst,
		)
	}

	// $merge returns no documents; closing the cursor is all that’s left.
	return cursor.Close(ctx)
}

func copyPipeline(dst string, limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{"$unset", "_id"}},
		{{"$limit", limit}},
		{{"$merge", bson.D{
			{"into", dst},
			{"whenMatched", "fail"},
			{"whenNotMatched", "insert"},
		}}},
	}
}

// CopyWorker returns a BatchFunc that copies each batch from src to dst
// over a client of its own.
func CopyWorker(connector *Connector, dbName, src, dst string) BatchFunc {
	return func(ctx context.Context, batchNum int, size int64) error {
		client, err := connector.Connect(ctx, fmt.Sprintf("batch %d into %s", batchNum, dst))
		if err != nil {
			return err
		}

		defer func() {
			_ = client.Disconnect(context.Background())
		}()

		return CopyBatch(ctx, client, dbName, src, dst, size)
	}
}
