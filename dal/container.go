package dal

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
)

// DALContainer holds the data access clients shared by the repositories
type DALContainer struct {
	databaseClient DatabaseClientInterface
}

// NewDALContainer connects to DynamoDB and wraps the client
func NewDALContainer(ctx context.Context, cfg *models.Config, log logger.Logger) (*DALContainer, error) {
	client, err := NewDynamoDBClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &DALContainer{databaseClient: client}, nil
}

// NewDALContainerWithClient wraps an existing database client
func NewDALContainerWithClient(client DatabaseClientInterface) *DALContainer {
	return &DALContainer{databaseClient: client}
}

// GetDatabaseClient returns the database client
func (c *DALContainer) GetDatabaseClient() DatabaseClientInterface {
	return c.databaseClient
}
