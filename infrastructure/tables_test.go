package infrastructure

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseTableNames(t *testing.T) {
	names := BaseTableNames()
	assert.Len(t, names, 12)
	assert.Contains(t, names, "dispatches")
	assert.Contains(t, names, "dispatch_technicians")
	assert.Contains(t, names, "technician_locks")
	assert.IsIncreasing(t, names)
}

func TestExtractBaseTableName(t *testing.T) {
	assert.Equal(t, "dispatch_time_entries", ExtractBaseTableName("dev", "dev_dispatch_time_entries"))
	assert.Equal(t, "users", ExtractBaseTableName("", "users"))
	assert.Equal(t, "prod_users", ExtractBaseTableName("dev", "prod_users"))
}

func TestGetTablesCompositeKeyAndIndex(t *testing.T) {
	input, err := GetTables("dev", "dev_dispatch_technicians")
	require.NoError(t, err)

	assert.Equal(t, "dev_dispatch_technicians", aws.ToString(input.TableName))
	require.Len(t, input.KeySchema, 2)
	assert.Equal(t, "dispatchID", aws.ToString(input.KeySchema[0].AttributeName))
	assert.Equal(t, types.KeyTypeHash, input.KeySchema[0].KeyType)
	assert.Equal(t, types.KeyTypeRange, input.KeySchema[1].KeyType)

	require.Len(t, input.GlobalSecondaryIndexes, 1)
	gsi := input.GlobalSecondaryIndexes[0]
	assert.Equal(t, "technicianID-scheduledDate-index", aws.ToString(gsi.IndexName))
	assert.Equal(t, types.ProjectionTypeAll, gsi.Projection.ProjectionType)
}

func TestGetTablesNumberSortKey(t *testing.T) {
	input, err := GetTables("dev", "dev_technician_working_hours")
	require.NoError(t, err)

	var dayType types.ScalarAttributeType
	for _, a := range input.AttributeDefinitions {
		if aws.ToString(a.AttributeName) == "dayOfWeek" {
			dayType = a.AttributeType
		}
	}
	assert.Equal(t, types.ScalarAttributeTypeN, dayType)
	assert.Empty(t, input.GlobalSecondaryIndexes)
}

func TestGetTablesUnknown(t *testing.T) {
	_, err := GetTables("dev", "dev_invoices")
	assert.Error(t, err)
}

func TestEveryIndexKeyIsDefined(t *testing.T) {
	for _, name := range BaseTableNames() {
		schema, err := GetTableSchema("", name)
		require.NoError(t, err, name)

		defined := map[string]bool{}
		for _, a := range schema.AttributeDefinitions {
			defined[a.AttributeName] = true
		}
		used := map[string]bool{}
		for _, k := range schema.KeySchema {
			used[k.AttributeName] = true
		}
		for _, g := range schema.GlobalSecondaryIndexes {
			for _, k := range g.KeySchema {
				used[k.AttributeName] = true
			}
		}
		assert.Equal(t, defined, used, "table %s must define exactly its key attributes", name)
	}
}
