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
	tableUsers        = "users"
	tableLeaves       = "technician_leaves"
	tableWorkingHours = "technician_working_hours"

	indexUserRole        = "role-index"
	indexLeaveTechnician = "technicianID-index"
)

// TechnicianRepository reads users, leaves and working hours. These records are owned by other
// services and are never written here.
type TechnicianRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewTechnicianRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *TechnicianRepository {
	return &TechnicianRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

func (r *TechnicianRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := r.db.GetItem(ctx, models.QueryConfig{
		TableName: r.config.TableName(tableUsers),
		KeyName:   "id",
		KeyValue:  id,
		KeyType:   models.StringType,
	}, &user)
	if err != nil {
		r.logger.Errorf("Failed to get user %s: %v", id, err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, models.NewNotFoundError("user", id)
	}
	return &user, nil
}

// ListTechnicians returns every user holding the technician role, ordered by id
func (r *TechnicianRepository) ListTechnicians(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.QueryByIndex(ctx, r.config.TableName(tableUsers), indexUserRole, "role", string(models.UserRoleTechnician), &users)
	if err != nil {
		r.logger.Errorf("Failed to list technicians: %v", err)
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *TechnicianRepository) GetLeaves(ctx context.Context, technicianID string) ([]*models.TechnicianLeave, error) {
	var leaves []*models.TechnicianLeave
	err := r.db.QueryByIndex(ctx, r.config.TableName(tableLeaves), indexLeaveTechnician, "technicianID", technicianID, &leaves)
	if err != nil {
		r.logger.Errorf("Failed to get leaves of technician %s: %v", technicianID, err)
		return nil, fmt.Errorf("failed to get technician leaves: %w", err)
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].StartDate < leaves[j].StartDate })
	return leaves, nil
}

// GetWorkingHours returns the technician's weekday rows ordered by day
func (r *TechnicianRepository) GetWorkingHours(ctx context.Context, technicianID string) ([]models.TechnicianWorkingHours, error) {
	var hours []models.TechnicianWorkingHours
	err := r.db.Query(ctx, models.QueryConfig{
		TableName: r.config.TableName(tableWorkingHours),
		KeyName:   "technicianID",
		KeyValue:  technicianID,
		KeyType:   models.StringType,
	}, &hours)
	if err != nil {
		r.logger.Errorf("Failed to get working hours of technician %s: %v", technicianID, err)
		return nil, fmt.Errorf("failed to get working hours: %w", err)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].DayOfWeek < hours[j].DayOfWeek })
	return hours, nil
}
