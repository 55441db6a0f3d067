package worker

import (
	"context"
	"dispatch-backend/dal"
	"dispatch-backend/infrastructure"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// TableClient is the part of the database client used for provisioning
type TableClient interface {
	CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error
	DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error)
}

// InfrastructureSetup provisions the tables of the embedded schema
type InfrastructureSetup struct {
	db         TableClient
	config     *models.Config
	tables     []string
	maxRetries int
	retryDelay time.Duration
	logger     logger.Logger
}

func NewInfrastructureSetup(db TableClient, cfg *models.Config, workerConfig *models.WorkerConfig, log logger.Logger) *InfrastructureSetup {
	return &InfrastructureSetup{
		db:         db,
		config:     cfg,
		tables:     workerConfig.RequiredTables,
		maxRetries: workerConfig.MaxRetries,
		retryDelay: workerConfig.RetryDelay,
		logger:     log,
	}
}

// TableDetails lists the prefixed tables to provision with their expected index counts
func (is *InfrastructureSetup) TableDetails() ([]*models.TableInfo, error) {
	details := make([]*models.TableInfo, 0, len(is.tables))
	for _, base := range is.tables {
		name := is.config.TableName(base)
		schema, err := infrastructure.GetTableSchema(is.config.DynamoDBTablePrefix, name)
		if err != nil {
			return nil, err
		}
		details = append(details, &models.TableInfo{
			Name:       name,
			BaseName:   base,
			IndexCount: len(schema.GlobalSecondaryIndexes),
			Tags: map[string]string{
				"Environment": is.config.AppEnv,
				"Application": is.config.AppName,
				"TableType":   base,
				"CreatedBy":   "infrastructure-worker",
				"Version":     is.config.AppVersion,
			},
		})
	}
	return details, nil
}

// Execute creates every missing table. Existing tables are left untouched.
func (is *InfrastructureSetup) Execute(ctx context.Context, status *StatusManager) error {
	tables, err := is.TableDetails()
	if err != nil {
		return err
	}

	is.logger.Infof("Provisioning %d tables", len(tables))
	for _, table := range tables {
		state, err := is.createTableWithRetry(ctx, table, status)
		if err != nil {
			is.logger.Errorf("Failed to create table %s: %v", table.Name, err)
			return err
		}
		if err := status.AddTable(models.TableStatus{
			Name:       table.Name,
			Status:     state,
			CreatedAt:  time.Now(),
			IndexCount: table.IndexCount,
		}); err != nil {
			is.logger.Warnf("Failed to save status: %v", err)
		}
		is.logger.Infof("Table %s: %s", table.Name, state)
	}
	return nil
}

// createTableWithRetry returns "EXISTS" when the table was already there, "CREATING" otherwise
func (is *InfrastructureSetup) createTableWithRetry(ctx context.Context, table *models.TableInfo, status *StatusManager) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= is.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * is.retryDelay
			is.logger.Infof("Retrying table creation for %s in %v (attempt %d/%d)", table.Name, delay, attempt+1, is.maxRetries+1)
			if err := status.IncrementRetry(); err != nil {
				is.logger.Warnf("Failed to save status: %v", err)
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		exists, err := is.tableExists(ctx, table.Name)
		if err != nil {
			lastErr = err
			continue
		}
		if exists {
			return "EXISTS", nil
		}

		input, err := infrastructure.GetTables(is.config.DynamoDBTablePrefix, table.Name)
		if err != nil {
			return "", err
		}
		input.Tags = toTags(table.Tags)

		if err := is.db.CreateTable(ctx, input); err != nil {
			if isResourceInUse(err) {
				return "EXISTS", nil
			}
			lastErr = err
			is.logger.Errorf("Attempt %d failed to create table %s: %v", attempt+1, table.Name, err)
			continue
		}
		return "CREATING", nil
	}
	return "", fmt.Errorf("failed to create table %s after %d attempts: %w", table.Name, is.maxRetries+1, lastErr)
}

func (is *InfrastructureSetup) tableExists(ctx context.Context, tableName string) (bool, error) {
	_, err := is.db.DescribeTable(ctx, tableName)
	if err != nil {
		if dal.IsTableNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Validate checks that every table is ACTIVE with the expected number of indexes
func (is *InfrastructureSetup) Validate(ctx context.Context) error {
	tables, err := is.TableDetails()
	if err != nil {
		return err
	}

	for _, table := range tables {
		desc, err := is.db.DescribeTable(ctx, table.Name)
		if err != nil {
			return fmt.Errorf("table %s validation failed: %w", table.Name, err)
		}
		if desc.Table == nil || desc.Table.TableStatus != types.TableStatusActive {
			status := types.TableStatus("UNKNOWN")
			if desc.Table != nil {
				status = desc.Table.TableStatus
			}
			return fmt.Errorf("table %s is not active: %s", table.Name, status)
		}
		if got := len(desc.Table.GlobalSecondaryIndexes); got != table.IndexCount {
			return fmt.Errorf("table %s has %d indexes, expected %d", table.Name, got, table.IndexCount)
		}
	}
	return nil
}

func toTags(tags map[string]string) []types.Tag {
	out := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		if v == "" {
			continue
		}
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

func isResourceInUse(err error) bool {
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceInUseException"
}
