package dal

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// ErrConditionFailed is returned when a conditional write or transaction condition does not hold
var ErrConditionFailed = errors.New("condition check failed")

// maxTransactItems is the DynamoDB limit of items in a single TransactWriteItems call
const maxTransactItems = 100

// DynamoAPI is the subset of the DynamoDB client used by DynamoDBClient
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
}

type DynamoDBClient struct {
	client DynamoAPI
	config *models.Config
	logger logger.Logger
}

// NewDynamoDBClient creates a new DynamoDB client
func NewDynamoDBClient(ctx context.Context, cfg *models.Config, log logger.Logger) (*DynamoDBClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Use static credentials if provided
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		))
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		// Local DynamoDB
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})

	log.Infof("DynamoDB client initialized (region=%s, endpoint=%q)", cfg.AWSRegion, cfg.DynamoDBEndpoint)
	return NewDynamoDBClientWithAPI(client, cfg, log), nil
}

// NewDynamoDBClientWithAPI wraps an existing API implementation
func NewDynamoDBClientWithAPI(api DynamoAPI, cfg *models.Config, log logger.Logger) *DynamoDBClient {
	return &DynamoDBClient{
		client: api,
		config: cfg,
		logger: log,
	}
}

// GetItem loads the item addressed by the key (and optional sort key) of cfg into result.
// It reports false when no item exists.
func (db *DynamoDBClient) GetItem(ctx context.Context, cfg models.QueryConfig, result interface{}) (bool, error) {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(cfg.TableName),
		Key:            primaryKey(cfg),
		ConsistentRead: aws.Bool(true),
	}

	output, err := db.client.GetItem(ctx, input)
	if err != nil {
		db.logger.Errorf("Failed to get item from %s: %v", cfg.TableName, err)
		return false, err
	}

	if output.Item == nil {
		return false, nil
	}

	if err := attributevalue.UnmarshalMap(output.Item, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return true, nil
}

// PutItem stores an item in DynamoDB
func (db *DynamoDBClient) PutItem(ctx context.Context, tableName string, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}

	_, err = db.client.PutItem(ctx, input)
	return err
}

// PutItemIf stores an item only when the condition holds. A failed condition returns ErrConditionFailed.
func (db *DynamoDBClient) PutItemIf(ctx context.Context, tableName string, item interface{}, condition string, names map[string]string, values map[string]interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	exprValues, err := marshalValues(values)
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName:                 aws.String(tableName),
		Item:                      av,
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  nilIfEmptyNames(names),
		ExpressionAttributeValues: exprValues,
	}

	if _, err := db.client.PutItem(ctx, input); err != nil {
		if IsConditionFailed(err) {
			return ErrConditionFailed
		}
		return err
	}
	return nil
}

// UpdateItem sets the given attributes on the item addressed by cfg
func (db *DynamoDBClient) UpdateItem(ctx context.Context, cfg models.QueryConfig, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	updateExpression, names, values, err := buildSetExpression(updates)
	if err != nil {
		return err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(cfg.TableName),
		Key:                       primaryKey(cfg),
		UpdateExpression:          aws.String(updateExpression),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueNone,
	}

	_, err = db.client.UpdateItem(ctx, input)
	return err
}

// DeleteItem deletes the item addressed by cfg
func (db *DynamoDBClient) DeleteItem(ctx context.Context, cfg models.QueryConfig) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(cfg.TableName),
		Key:       primaryKey(cfg),
	}

	_, err := db.client.DeleteItem(ctx, input)
	return err
}

// DeleteItemIf deletes the item only when the condition holds. A failed condition returns ErrConditionFailed.
func (db *DynamoDBClient) DeleteItemIf(ctx context.Context, cfg models.QueryConfig, condition string, names map[string]string, values map[string]interface{}) error {
	exprValues, err := marshalValues(values)
	if err != nil {
		return err
	}

	input := &dynamodb.DeleteItemInput{
		TableName:                 aws.String(cfg.TableName),
		Key:                       primaryKey(cfg),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  nilIfEmptyNames(names),
		ExpressionAttributeValues: exprValues,
	}

	if _, err := db.client.DeleteItem(ctx, input); err != nil {
		if IsConditionFailed(err) {
			return ErrConditionFailed
		}
		return err
	}
	return nil
}

// Query runs a key-condition query on a table or index and reads every page into results
func (db *DynamoDBClient) Query(ctx context.Context, cfg models.QueryConfig, results interface{}) error {
	input, err := buildQueryInput(cfg)
	if err != nil {
		return err
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(db.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			db.logger.Errorf("Failed to query %s (index=%q): %v", cfg.TableName, cfg.IndexName, err)
			return err
		}
		items = append(items, page.Items...)
	}

	return attributevalue.UnmarshalListOfMaps(items, results)
}

// QueryByIndex queries items using a global secondary index
func (db *DynamoDBClient) QueryByIndex(ctx context.Context, tableName, indexName, keyName, keyValue string, results interface{}) error {
	return db.Query(ctx, models.QueryConfig{
		TableName: tableName,
		IndexName: indexName,
		KeyName:   keyName,
		KeyValue:  keyValue,
		KeyType:   models.StringType,
	}, results)
}

// Scan reads the whole table, applying the optional filter of cfg
func (db *DynamoDBClient) Scan(ctx context.Context, cfg models.QueryConfig, results interface{}) error {
	input := &dynamodb.ScanInput{
		TableName: aws.String(cfg.TableName),
	}
	if cfg.FilterExpression != "" {
		values, err := marshalValues(cfg.FilterValues)
		if err != nil {
			return err
		}
		input.FilterExpression = aws.String(cfg.FilterExpression)
		input.ExpressionAttributeNames = nilIfEmptyNames(cfg.FilterNames)
		input.ExpressionAttributeValues = values
	}
	if cfg.Limit > 0 {
		input.Limit = aws.Int32(cfg.Limit)
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewScanPaginator(db.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			db.logger.Errorf("Failed to scan %s: %v", cfg.TableName, err)
			return err
		}
		items = append(items, page.Items...)
	}

	return attributevalue.UnmarshalListOfMaps(items, results)
}

// ScanTable scans a table without a filter
func (db *DynamoDBClient) ScanTable(ctx context.Context, tableName string, results interface{}) error {
	return db.Scan(ctx, models.QueryConfig{TableName: tableName}, results)
}

// TransactWrite applies all operations atomically. A failed condition on any item returns ErrConditionFailed.
func (db *DynamoDBClient) TransactWrite(ctx context.Context, ops []models.TransactOperation) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > maxTransactItems {
		return fmt.Errorf("transaction has %d operations, limit is %d", len(ops), maxTransactItems)
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for i, op := range ops {
		item, err := buildTransactItem(op)
		if err != nil {
			return fmt.Errorf("operation %d on %s: %w", i, op.TableName, err)
		}
		items = append(items, item)
	}

	_, err := db.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if IsConditionFailed(err) {
			return ErrConditionFailed
		}
		db.logger.Errorf("Transaction of %d items failed: %v", len(items), err)
		return err
	}
	return nil
}

// CreateTable creates a table
func (db *DynamoDBClient) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error {
	_, err := db.client.CreateTable(ctx, input)
	return err
}

// DescribeTable describes a table
func (db *DynamoDBClient) DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error) {
	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}
	return db.client.DescribeTable(ctx, input)
}

// DeleteTable deletes a table
func (db *DynamoDBClient) DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput) error {
	_, err := db.client.DeleteTable(ctx, input)
	return err
}

// IsConditionFailed reports whether err is a conditional check failure, either on a single
// write or as the cancellation reason of a transaction
func IsConditionFailed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConditionFailed) {
		return true
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ConditionalCheckFailedException"
	}
	return false
}

// IsTableNotFound reports whether err says the table does not exist
func IsTableNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ResourceNotFoundException"
	}
	return strings.Contains(err.Error(), "ResourceNotFoundException")
}

func attributeValue(value string, t models.AttributeType) types.AttributeValue {
	if t == models.NumberType {
		return &types.AttributeValueMemberN{Value: value}
	}
	return &types.AttributeValueMemberS{Value: value}
}

func primaryKey(cfg models.QueryConfig) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{
		cfg.KeyName: attributeValue(cfg.KeyValue, cfg.KeyType),
	}
	if cfg.SortKeyName != "" {
		key[cfg.SortKeyName] = attributeValue(cfg.SortKeyValue, cfg.SortKeyType)
	}
	return key
}

func buildQueryInput(cfg models.QueryConfig) (*dynamodb.QueryInput, error) {
	if cfg.KeyName == "" {
		return nil, errors.New("query requires a partition key")
	}

	names := map[string]string{"#kn0": cfg.KeyName}
	values := map[string]types.AttributeValue{
		":kv0": attributeValue(cfg.KeyValue, cfg.KeyType),
	}
	condition := "#kn0 = :kv0"

	if cfg.SortKeyName != "" {
		names["#kn1"] = cfg.SortKeyName
		values[":kv1"] = attributeValue(cfg.SortKeyValue, cfg.SortKeyType)
		switch cfg.SortKeyOp {
		case models.SortKeyBetween:
			values[":kv2"] = attributeValue(cfg.SortKeyEnd, cfg.SortKeyType)
			condition += " AND #kn1 BETWEEN :kv1 AND :kv2"
		case models.SortKeyBeginsWith:
			condition += " AND begins_with(#kn1, :kv1)"
		case models.SortKeyGreaterEq, models.SortKeyLessEq:
			condition += " AND #kn1 " + string(cfg.SortKeyOp) + " :kv1"
		case models.SortKeyEquals, "":
			condition += " AND #kn1 = :kv1"
		default:
			return nil, fmt.Errorf("unsupported sort key operator %q", cfg.SortKeyOp)
		}
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(cfg.TableName),
		KeyConditionExpression: aws.String(condition),
	}
	if cfg.IndexName != "" {
		input.IndexName = aws.String(cfg.IndexName)
	}
	if cfg.Limit > 0 {
		input.Limit = aws.Int32(cfg.Limit)
	}

	if cfg.FilterExpression != "" {
		filterValues, err := marshalValues(cfg.FilterValues)
		if err != nil {
			return nil, err
		}
		for k, v := range cfg.FilterNames {
			names[k] = v
		}
		for k, v := range filterValues {
			values[k] = v
		}
		input.FilterExpression = aws.String(cfg.FilterExpression)
	}

	input.ExpressionAttributeNames = names
	input.ExpressionAttributeValues = values
	return input, nil
}

// buildSetExpression renders a deterministic SET expression for the given attribute updates
func buildSetExpression(updates map[string]interface{}) (string, map[string]string, map[string]types.AttributeValue, error) {
	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	parts := make([]string, 0, len(fields))

	for i, field := range fields {
		attrName := fmt.Sprintf("#u%d", i)
		attrValue := fmt.Sprintf(":u%d", i)

		av, err := attributevalue.Marshal(updates[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to marshal %s: %w", field, err)
		}

		names[attrName] = field
		values[attrValue] = av
		parts = append(parts, attrName+" = "+attrValue)
	}

	return "SET " + strings.Join(parts, ", "), names, values, nil
}

func buildTransactItem(op models.TransactOperation) (types.TransactWriteItem, error) {
	var condition *string
	if op.ConditionExpression != "" {
		condition = aws.String(op.ConditionExpression)
	}
	values, err := marshalValues(op.ConditionValues)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	names := nilIfEmptyNames(op.ConditionNames)

	switch {
	case op.Put != nil && op.Delete == nil:
		av, err := attributevalue.MarshalMap(op.Put)
		if err != nil {
			return types.TransactWriteItem{}, fmt.Errorf("failed to marshal item: %w", err)
		}
		return types.TransactWriteItem{Put: &types.Put{
			TableName:                 aws.String(op.TableName),
			Item:                      av,
			ConditionExpression:       condition,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}}, nil
	case op.Delete != nil && op.Put == nil:
		key := make(map[string]types.AttributeValue, len(op.Delete))
		for _, k := range op.Delete {
			key[k.Name] = attributeValue(k.Value, k.Type)
		}
		return types.TransactWriteItem{Delete: &types.Delete{
			TableName:                 aws.String(op.TableName),
			Key:                       key,
			ConditionExpression:       condition,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}}, nil
	default:
		return types.TransactWriteItem{}, errors.New("exactly one of Put or Delete must be set")
	}
}

func marshalValues(values map[string]interface{}) (map[string]types.AttributeValue, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(values))
	for k, v := range values {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal expression value %s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func nilIfEmptyNames(names map[string]string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	return names
}
