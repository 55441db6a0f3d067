package dal

import (
	"context"
	"dispatch-backend/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DatabaseClientInterface defines the contract for database operations
type DatabaseClientInterface interface {
	// Core CRUD operations
	GetItem(ctx context.Context, config models.QueryConfig, result interface{}) (bool, error)
	PutItem(ctx context.Context, tableName string, item interface{}) error
	PutItemIf(ctx context.Context, tableName string, item interface{}, condition string, names map[string]string, values map[string]interface{}) error
	UpdateItem(ctx context.Context, config models.QueryConfig, updates map[string]interface{}) error
	DeleteItem(ctx context.Context, config models.QueryConfig) error
	DeleteItemIf(ctx context.Context, config models.QueryConfig, condition string, names map[string]string, values map[string]interface{}) error

	// Query and Scan operations
	Query(ctx context.Context, config models.QueryConfig, results interface{}) error
	QueryByIndex(ctx context.Context, tableName, indexName, keyName, keyValue string, results interface{}) error
	Scan(ctx context.Context, config models.QueryConfig, results interface{}) error
	ScanTable(ctx context.Context, tableName string, results interface{}) error

	// Multi-item writes
	TransactWrite(ctx context.Context, ops []models.TransactOperation) error

	// Table management operations
	CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error
	DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput) error
}

// DALContainerInterface defines the contract for the DAL container
type DALContainerInterface interface {
	GetDatabaseClient() DatabaseClientInterface
}
