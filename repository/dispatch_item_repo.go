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
	tableTimeEntries = "dispatch_time_entries"
	tableExpenses    = "dispatch_expenses"
	tableMaterials   = "dispatch_materials"
	tableAttachments = "dispatch_attachments"
	tableNotes       = "dispatch_notes"
)

// DispatchItemRepository stores the records attached to a dispatch. Every table is keyed by
// dispatchID and the record id.
type DispatchItemRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewDispatchItemRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *DispatchItemRepository {
	return &DispatchItemRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

func (r *DispatchItemRepository) SaveTimeEntry(ctx context.Context, entry *models.TimeEntry) error {
	return r.put(ctx, tableTimeEntries, entry.DispatchID, entry.ID, entry)
}

func (r *DispatchItemRepository) GetTimeEntry(ctx context.Context, dispatchID, id string) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	if err := r.get(ctx, tableTimeEntries, "time entry", dispatchID, id, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *DispatchItemRepository) ListTimeEntries(ctx context.Context, dispatchID string) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	if err := r.list(ctx, tableTimeEntries, dispatchID, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].StartTime.Before(entries[j].StartTime) })
	return entries, nil
}

func (r *DispatchItemRepository) SaveExpense(ctx context.Context, expense *models.Expense) error {
	return r.put(ctx, tableExpenses, expense.DispatchID, expense.ID, expense)
}

func (r *DispatchItemRepository) GetExpense(ctx context.Context, dispatchID, id string) (*models.Expense, error) {
	var expense models.Expense
	if err := r.get(ctx, tableExpenses, "expense", dispatchID, id, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *DispatchItemRepository) ListExpenses(ctx context.Context, dispatchID string) ([]models.Expense, error) {
	var expenses []models.Expense
	if err := r.list(ctx, tableExpenses, dispatchID, &expenses); err != nil {
		return nil, err
	}
	sort.SliceStable(expenses, func(i, j int) bool { return expenses[i].CreatedAt.Before(expenses[j].CreatedAt) })
	return expenses, nil
}

func (r *DispatchItemRepository) SaveMaterial(ctx context.Context, material *models.MaterialUsage) error {
	return r.put(ctx, tableMaterials, material.DispatchID, material.ID, material)
}

func (r *DispatchItemRepository) GetMaterial(ctx context.Context, dispatchID, id string) (*models.MaterialUsage, error) {
	var material models.MaterialUsage
	if err := r.get(ctx, tableMaterials, "material usage", dispatchID, id, &material); err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *DispatchItemRepository) ListMaterials(ctx context.Context, dispatchID string) ([]models.MaterialUsage, error) {
	var materials []models.MaterialUsage
	if err := r.list(ctx, tableMaterials, dispatchID, &materials); err != nil {
		return nil, err
	}
	sort.SliceStable(materials, func(i, j int) bool { return materials[i].CreatedAt.Before(materials[j].CreatedAt) })
	return materials, nil
}

func (r *DispatchItemRepository) SaveAttachment(ctx context.Context, attachment *models.Attachment) error {
	return r.put(ctx, tableAttachments, attachment.DispatchID, attachment.ID, attachment)
}

func (r *DispatchItemRepository) ListAttachments(ctx context.Context, dispatchID string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := r.list(ctx, tableAttachments, dispatchID, &attachments); err != nil {
		return nil, err
	}
	sort.SliceStable(attachments, func(i, j int) bool { return attachments[i].UploadedAt.Before(attachments[j].UploadedAt) })
	return attachments, nil
}

func (r *DispatchItemRepository) SaveNote(ctx context.Context, note *models.Note) error {
	return r.put(ctx, tableNotes, note.DispatchID, note.ID, note)
}

func (r *DispatchItemRepository) ListNotes(ctx context.Context, dispatchID string) ([]models.Note, error) {
	var notes []models.Note
	if err := r.list(ctx, tableNotes, dispatchID, &notes); err != nil {
		return nil, err
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.Before(notes[j].CreatedAt) })
	return notes, nil
}

func (r *DispatchItemRepository) put(ctx context.Context, base, dispatchID, id string, item interface{}) error {
	if err := r.db.PutItem(ctx, r.config.TableName(base), item); err != nil {
		r.logger.Errorf("Failed to save %s/%s in %s: %v", dispatchID, id, base, err)
		return fmt.Errorf("failed to save %s item: %w", base, err)
	}
	return nil
}

func (r *DispatchItemRepository) get(ctx context.Context, base, entity, dispatchID, id string, out interface{}) error {
	found, err := r.db.GetItem(ctx, models.QueryConfig{
		TableName:    r.config.TableName(base),
		KeyName:      "dispatchID",
		KeyValue:     dispatchID,
		KeyType:      models.StringType,
		SortKeyName:  "id",
		SortKeyValue: id,
		SortKeyType:  models.StringType,
	}, out)
	if err != nil {
		r.logger.Errorf("Failed to get %s %s of dispatch %s: %v", entity, id, dispatchID, err)
		return fmt.Errorf("failed to get %s: %w", entity, err)
	}
	if !found {
		return models.NewNotFoundError(entity, id)
	}
	return nil
}

func (r *DispatchItemRepository) list(ctx context.Context, base, dispatchID string, out interface{}) error {
	err := r.db.Query(ctx, models.QueryConfig{
		TableName: r.config.TableName(base),
		KeyName:   "dispatchID",
		KeyValue:  dispatchID,
		KeyType:   models.StringType,
	}, out)
	if err != nil {
		r.logger.Errorf("Failed to list %s of dispatch %s: %v", base, dispatchID, err)
		return fmt.Errorf("failed to list %s: %w", base, err)
	}
	return nil
}
