package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockDeployment(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func toDoc(t testing.TB, v interface{}) bson.D {
	raw, err := bson.Marshal(v)
	require.NoError(t, err)

	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func ns(mt *mtest.T, collection string) string {
	return mt.DB.Name() + "." + collection
}

func cursor(mt *mtest.T, collection string, docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, ns(mt, collection), mtest.FirstBatch, docs...)
}
