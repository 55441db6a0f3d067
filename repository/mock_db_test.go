package repository

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/mock"
)

// MockDatabaseClient implements dal.DatabaseClientInterface for testing
type MockDatabaseClient struct {
	mock.Mock
}

func (m *MockDatabaseClient) GetItem(ctx context.Context, config models.QueryConfig, result interface{}) (bool, error) {
	args := m.Called(ctx, config, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockDatabaseClient) PutItem(ctx context.Context, tableName string, item interface{}) error {
	return m.Called(ctx, tableName, item).Error(0)
}

func (m *MockDatabaseClient) PutItemIf(ctx context.Context, tableName string, item interface{}, condition string, names map[string]string, values map[string]interface{}) error {
	return m.Called(ctx, tableName, item, condition, names, values).Error(0)
}

func (m *MockDatabaseClient) UpdateItem(ctx context.Context, config models.QueryConfig, updates map[string]interface{}) error {
	return m.Called(ctx, config, updates).Error(0)
}

func (m *MockDatabaseClient) DeleteItem(ctx context.Context, config models.QueryConfig) error {
	return m.Called(ctx, config).Error(0)
}

func (m *MockDatabaseClient) DeleteItemIf(ctx context.Context, config models.QueryConfig, condition string, names map[string]string, values map[string]interface{}) error {
	return m.Called(ctx, config, condition, names, values).Error(0)
}

func (m *MockDatabaseClient) Query(ctx context.Context, config models.QueryConfig, results interface{}) error {
	return m.Called(ctx, config, results).Error(0)
}

func (m *MockDatabaseClient) QueryByIndex(ctx context.Context, tableName, indexName, keyName, keyValue string, results interface{}) error {
	return m.Called(ctx, tableName, indexName, keyName, keyValue, results).Error(0)
}

func (m *MockDatabaseClient) Scan(ctx context.Context, config models.QueryConfig, results interface{}) error {
	return m.Called(ctx, config, results).Error(0)
}

func (m *MockDatabaseClient) ScanTable(ctx context.Context, tableName string, results interface{}) error {
	return m.Called(ctx, tableName, results).Error(0)
}

func (m *MockDatabaseClient) TransactWrite(ctx context.Context, ops []models.TransactOperation) error {
	return m.Called(ctx, ops).Error(0)
}

func (m *MockDatabaseClient) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *MockDatabaseClient) DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, tableName)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)
	return out, args.Error(1)
}

func (m *MockDatabaseClient) DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput) error {
	return m.Called(ctx, input).Error(0)
}

func testConfig() *models.Config {
	return &models.Config{DynamoDBTablePrefix: "test"}
}

func testLogger() logger.Logger {
	return logger.NewLogger("error", "json")
}

// byTable matches a QueryConfig addressed to the given table
func byTable(table string) interface{} {
	return mock.MatchedBy(func(cfg models.QueryConfig) bool { return cfg.TableName == table })
}
