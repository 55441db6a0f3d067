package repository

import (
	"context"
	"dispatch-backend/dal"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"fmt"
	"sort"
)

const (
	tableDispatches          = "dispatches"
	tableDispatchTechnicians = "dispatch_technicians"

	indexDispatchStatus       = "status-index"
	indexDispatchServiceOrder = "serviceOrderID-index"
	indexTechnicianSchedule   = "technicianID-scheduledDate-index"
	notDeletedFilter          = "#isDeleted = :notDeleted"
)

type DispatchRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewDispatchRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *DispatchRepository {
	return &DispatchRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

// CreateDispatch writes the dispatch and its technician rows in one transaction
func (r *DispatchRepository) CreateDispatch(ctx context.Context, dispatch *models.Dispatch) error {
	r.logger.Infof("Creating dispatch %s with %d technicians", dispatch.DispatchNumber, len(dispatch.Technicians))

	ops := []models.TransactOperation{{
		TableName:           r.config.TableName(tableDispatches),
		Put:                 dispatch,
		ConditionExpression: "attribute_not_exists(dispatchID)",
	}}
	for i := range dispatch.Technicians {
		ops = append(ops, models.TransactOperation{
			TableName: r.config.TableName(tableDispatchTechnicians),
			Put:       &dispatch.Technicians[i],
		})
	}

	if err := r.db.TransactWrite(ctx, ops); err != nil {
		r.logger.Errorf("Failed to create dispatch %s: %v", dispatch.ID, err)
		return fmt.Errorf("failed to create dispatch: %w", err)
	}

	r.logger.Infof("Dispatch created successfully: %s", dispatch.ID)
	return nil
}

// GetDispatch loads a dispatch row and its technicians. Soft-deleted rows are returned as stored.
func (r *DispatchRepository) GetDispatch(ctx context.Context, id string) (*models.Dispatch, error) {
	dispatch, err := r.getDispatchRow(ctx, id)
	if err != nil {
		return nil, err
	}

	technicians, err := r.GetDispatchTechnicians(ctx, id)
	if err != nil {
		return nil, err
	}
	dispatch.Technicians = technicians
	return dispatch, nil
}

func (r *DispatchRepository) getDispatchRow(ctx context.Context, id string) (*models.Dispatch, error) {
	var dispatch models.Dispatch
	found, err := r.db.GetItem(ctx, models.QueryConfig{
		TableName: r.config.TableName(tableDispatches),
		KeyName:   "dispatchID",
		KeyValue:  id,
		KeyType:   models.StringType,
	}, &dispatch)
	if err != nil {
		r.logger.Errorf("Failed to get dispatch %s: %v", id, err)
		return nil, fmt.Errorf("failed to get dispatch: %w", err)
	}
	if !found {
		return nil, models.NewNotFoundError("dispatch", id)
	}
	return &dispatch, nil
}

// GetDispatchTechnicians returns the technician rows of a dispatch ordered by assignment time
func (r *DispatchRepository) GetDispatchTechnicians(ctx context.Context, dispatchID string) ([]models.DispatchTechnician, error) {
	var rows []models.DispatchTechnician
	err := r.db.Query(ctx, models.QueryConfig{
		TableName: r.config.TableName(tableDispatchTechnicians),
		KeyName:   "dispatchID",
		KeyValue:  dispatchID,
		KeyType:   models.StringType,
	}, &rows)
	if err != nil {
		r.logger.Errorf("Failed to load technicians of dispatch %s: %v", dispatchID, err)
		return nil, fmt.Errorf("failed to load dispatch technicians: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AssignedAt.Equal(rows[j].AssignedAt) {
			return rows[i].TechnicianID < rows[j].TechnicianID
		}
		return rows[i].AssignedAt.Before(rows[j].AssignedAt)
	})
	return rows, nil
}

// SaveDispatch overwrites the dispatch row; technician rows are untouched
func (r *DispatchRepository) SaveDispatch(ctx context.Context, dispatch *models.Dispatch) error {
	if err := r.db.PutItem(ctx, r.config.TableName(tableDispatches), dispatch); err != nil {
		r.logger.Errorf("Failed to save dispatch %s: %v", dispatch.ID, err)
		return fmt.Errorf("failed to save dispatch: %w", err)
	}
	return nil
}

// ReplaceTechnicians writes the dispatch row together with its new technician set. Rows of
// technicians no longer assigned are deleted, all others are rewritten with the current slot.
func (r *DispatchRepository) ReplaceTechnicians(ctx context.Context, dispatch *models.Dispatch, previous []models.DispatchTechnician) error {
	keep := make(map[string]struct{}, len(dispatch.Technicians))
	for _, t := range dispatch.Technicians {
		keep[t.TechnicianID] = struct{}{}
	}

	ops := []models.TransactOperation{{
		TableName: r.config.TableName(tableDispatches),
		Put:       dispatch,
	}}
	for _, old := range previous {
		if _, ok := keep[old.TechnicianID]; ok {
			continue
		}
		ops = append(ops, models.TransactOperation{
			TableName: r.config.TableName(tableDispatchTechnicians),
			Delete: []models.KeyAttribute{
				{Name: "dispatchID", Value: dispatch.ID, Type: models.StringType},
				{Name: "technicianID", Value: old.TechnicianID, Type: models.StringType},
			},
		})
	}
	for i := range dispatch.Technicians {
		ops = append(ops, models.TransactOperation{
			TableName: r.config.TableName(tableDispatchTechnicians),
			Put:       &dispatch.Technicians[i],
		})
	}

	if err := r.db.TransactWrite(ctx, ops); err != nil {
		r.logger.Errorf("Failed to replace technicians of dispatch %s: %v", dispatch.ID, err)
		return fmt.Errorf("failed to replace dispatch technicians: %w", err)
	}
	return nil
}

// ListDispatches returns non-deleted dispatches matching the filter with their technicians loaded.
// The most selective index available for the filter is used.
func (r *DispatchRepository) ListDispatches(ctx context.Context, filter *models.DispatchFilter) ([]*models.Dispatch, error) {
	if filter == nil {
		filter = &models.DispatchFilter{}
	}

	var (
		dispatches []*models.Dispatch
		err        error
	)
	switch {
	case filter.TechnicianID != "":
		dispatches, err = r.GetDispatchesForTechnician(ctx, filter.TechnicianID, filter.DateFrom, filter.DateTo)
	case filter.Status != "":
		cfg := r.dateRangeQuery(r.config.TableName(tableDispatches), indexDispatchStatus, "status", string(filter.Status), filter.DateFrom, filter.DateTo)
		withNotDeleted(&cfg)
		err = r.db.Query(ctx, cfg, &dispatches)
	case filter.ServiceOrderID != "":
		cfg := models.QueryConfig{
			TableName: r.config.TableName(tableDispatches),
			IndexName: indexDispatchServiceOrder,
			KeyName:   "serviceOrderID",
			KeyValue:  filter.ServiceOrderID,
			KeyType:   models.StringType,
		}
		withNotDeleted(&cfg)
		err = r.db.Query(ctx, cfg, &dispatches)
	default:
		cfg := models.QueryConfig{TableName: r.config.TableName(tableDispatches)}
		withNotDeleted(&cfg)
		err = r.db.Scan(ctx, cfg, &dispatches)
	}
	if err != nil {
		r.logger.Errorf("Failed to list dispatches: %v", err)
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}

	result := make([]*models.Dispatch, 0, len(dispatches))
	for _, d := range dispatches {
		if d.IsDeleted || !filter.Matches(d) {
			continue
		}
		if d.Technicians == nil {
			if d.Technicians, err = r.GetDispatchTechnicians(ctx, d.ID); err != nil {
				return nil, err
			}
		}
		result = append(result, d)
	}
	return result, nil
}

// GetTechnicianAssignments reads a technician's assignment rows in the inclusive date range.
// Empty bounds leave that side open.
func (r *DispatchRepository) GetTechnicianAssignments(ctx context.Context, technicianID, from, to string) ([]models.DispatchTechnician, error) {
	var rows []models.DispatchTechnician
	cfg := r.dateRangeQuery(r.config.TableName(tableDispatchTechnicians), indexTechnicianSchedule, "technicianID", technicianID, from, to)
	if err := r.db.Query(ctx, cfg, &rows); err != nil {
		r.logger.Errorf("Failed to query assignments of technician %s: %v", technicianID, err)
		return nil, fmt.Errorf("failed to query technician assignments: %w", err)
	}
	return rows, nil
}

// GetDispatchesForTechnician loads the current state of every non-deleted dispatch the technician
// is assigned to within the date range
func (r *DispatchRepository) GetDispatchesForTechnician(ctx context.Context, technicianID, from, to string) ([]*models.Dispatch, error) {
	rows, err := r.GetTechnicianAssignments(ctx, technicianID, from, to)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	dispatches := make([]*models.Dispatch, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.DispatchID]; ok {
			continue
		}
		seen[row.DispatchID] = struct{}{}

		dispatch, err := r.GetDispatch(ctx, row.DispatchID)
		if err != nil {
			if models.IsNotFound(err) {
				r.logger.Warnf("Technician %s references missing dispatch %s", technicianID, row.DispatchID)
				continue
			}
			return nil, err
		}
		if dispatch.IsDeleted {
			continue
		}
		dispatches = append(dispatches, dispatch)
	}
	return dispatches, nil
}

func (r *DispatchRepository) dateRangeQuery(table, index, keyName, keyValue, from, to string) models.QueryConfig {
	cfg := models.QueryConfig{
		TableName: table,
		IndexName: index,
		KeyName:   keyName,
		KeyValue:  keyValue,
		KeyType:   models.StringType,
	}
	switch {
	case from != "" && to != "":
		cfg.SortKeyName = "scheduledDate"
		cfg.SortKeyOp = models.SortKeyBetween
		cfg.SortKeyValue = from
		cfg.SortKeyEnd = to
	case from != "":
		cfg.SortKeyName = "scheduledDate"
		cfg.SortKeyOp = models.SortKeyGreaterEq
		cfg.SortKeyValue = from
	case to != "":
		cfg.SortKeyName = "scheduledDate"
		cfg.SortKeyOp = models.SortKeyLessEq
		cfg.SortKeyValue = to
	}
	return cfg
}

func withNotDeleted(cfg *models.QueryConfig) {
	cfg.FilterExpression = notDeletedFilter
	cfg.FilterNames = map[string]string{"#isDeleted": "isDeleted"}
	cfg.FilterValues = map[string]interface{}{":notDeleted": false}
}
