package infrastructure

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tidwall/gjson"
)

type TableSchema struct {
	TableName              string                 `json:"TableName"`
	AttributeDefinitions   []AttributeDefinition  `json:"AttributeDefinitions"`
	KeySchema              []KeySchemaElement     `json:"KeySchema"`
	ProvisionedThroughput  Throughput             `json:"ProvisionedThroughput"`
	GlobalSecondaryIndexes []GlobalSecondaryIndex `json:"GlobalSecondaryIndexes,omitempty"`
}

type AttributeDefinition struct {
	AttributeName string `json:"AttributeName"`
	AttributeType string `json:"AttributeType"`
}

type KeySchemaElement struct {
	AttributeName string `json:"AttributeName"`
	KeyType       string `json:"KeyType"`
}

type Throughput struct {
	ReadCapacityUnits  int64 `json:"ReadCapacityUnits"`
	WriteCapacityUnits int64 `json:"WriteCapacityUnits"`
}

type GlobalSecondaryIndex struct {
	IndexName             string             `json:"IndexName"`
	KeySchema             []KeySchemaElement `json:"KeySchema"`
	Projection            Projection         `json:"Projection"`
	ProvisionedThroughput Throughput         `json:"ProvisionedThroughput"`
}

type Projection struct {
	ProjectionType string `json:"ProjectionType"`
}

//go:embed table_schema.json
var tablesSchema []byte

// BaseTableNames lists every table defined in the embedded schema, sorted
func BaseTableNames() []string {
	var names []string
	gjson.ParseBytes(tablesSchema).ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	sort.Strings(names)
	return names
}

// GetTables builds the create input for a prefixed table name such as "dev_dispatch_technicians"
func GetTables(prefix, tableName string) (*dynamodb.CreateTableInput, error) {
	schema, err := GetTableSchema(prefix, tableName)
	if err != nil {
		return nil, err
	}
	return schema.ToDynamoInput(), nil
}

// GetTableSchema loads the schema for a prefixed table name and stamps the full name on it
func GetTableSchema(prefix, tableName string) (*TableSchema, error) {
	schemaKey := ExtractBaseTableName(prefix, tableName)

	tableJson := gjson.GetBytes(tablesSchema, gjson.Escape(schemaKey))
	if !tableJson.Exists() {
		return nil, fmt.Errorf("table schema not found for key: %s", schemaKey)
	}

	var schema TableSchema
	if err := json.Unmarshal([]byte(tableJson.Raw), &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema JSON: %w", err)
	}

	schema.TableName = tableName
	return &schema, nil
}

// ExtractBaseTableName strips the environment prefix from a table name.
// For example, ("dev", "dev_technician_locks") -> "technician_locks"
func ExtractBaseTableName(prefix, tableName string) string {
	if prefix == "" {
		return tableName
	}
	return strings.TrimPrefix(tableName, prefix+"_")
}

// Convert our schema to DynamoDB input
func (ts *TableSchema) ToDynamoInput() *dynamodb.CreateTableInput {
	attrDefs := make([]types.AttributeDefinition, 0, len(ts.AttributeDefinitions))
	for _, a := range ts.AttributeDefinitions {
		attrDefs = append(attrDefs, types.AttributeDefinition{
			AttributeName: aws.String(a.AttributeName),
			AttributeType: types.ScalarAttributeType(a.AttributeType),
		})
	}

	var gsis []types.GlobalSecondaryIndex
	for _, g := range ts.GlobalSecondaryIndexes {
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName: aws.String(g.IndexName),
			KeySchema: toKeySchema(g.KeySchema),
			Projection: &types.Projection{
				ProjectionType: types.ProjectionType(g.Projection.ProjectionType),
			},
			ProvisionedThroughput: toThroughput(g.ProvisionedThroughput),
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:              aws.String(ts.TableName),
		AttributeDefinitions:   attrDefs,
		KeySchema:              toKeySchema(ts.KeySchema),
		ProvisionedThroughput:  toThroughput(ts.ProvisionedThroughput),
		GlobalSecondaryIndexes: gsis,
	}
}

func toKeySchema(elements []KeySchemaElement) []types.KeySchemaElement {
	out := make([]types.KeySchemaElement, 0, len(elements))
	for _, k := range elements {
		out = append(out, types.KeySchemaElement{
			AttributeName: aws.String(k.AttributeName),
			KeyType:       types.KeyType(k.KeyType),
		})
	}
	return out
}

func toThroughput(t Throughput) *types.ProvisionedThroughput {
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(t.ReadCapacityUnits),
		WriteCapacityUnits: aws.Int64(t.WriteCapacityUnits),
	}
}
