package models

import "time"

// ApprovalStatus is the one-way approval state of cost and effort records
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
)

// Approval is embedded into records that can be approved once
type Approval struct {
	Status     ApprovalStatus `json:"status" dynamodbav:"status"`
	ApprovedBy string         `json:"approvedBy,omitempty" dynamodbav:"approvedBy,omitempty"`
	ApprovedAt *time.Time     `json:"approvedAt,omitempty" dynamodbav:"approvedAt,omitempty"`
}

// Approve flips the record to approved. It returns false when the record was already approved.
func (a *Approval) Approve(approver string, at time.Time) bool {
	if a.Status == ApprovalStatusApproved {
		return false
	}
	a.Status = ApprovalStatusApproved
	a.ApprovedBy = approver
	a.ApprovedAt = &at
	return true
}

// TimeEntry records effort spent on a dispatch
type TimeEntry struct {
	ID           string    `json:"id" dynamodbav:"id"`
	DispatchID   string    `json:"dispatchId" dynamodbav:"dispatchID"`
	TechnicianID string    `json:"technicianId" dynamodbav:"technicianID"`
	WorkType     string    `json:"workType,omitempty" dynamodbav:"workType,omitempty"`
	StartTime    time.Time `json:"startTime" dynamodbav:"startTime"`
	EndTime      time.Time `json:"endTime" dynamodbav:"endTime"`
	Duration     int       `json:"duration" dynamodbav:"duration"`
	Description  string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Billable     bool      `json:"billable" dynamodbav:"billable"`
	HourlyRate   *float64  `json:"hourlyRate,omitempty" dynamodbav:"hourlyRate,omitempty"`
	TotalCost    *float64  `json:"totalCost,omitempty" dynamodbav:"totalCost,omitempty"`
	Approval
	CreatedBy string    `json:"createdBy,omitempty" dynamodbav:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// Expense records a cost incurred on a dispatch
type Expense struct {
	ID           string    `json:"id" dynamodbav:"id"`
	DispatchID   string    `json:"dispatchId" dynamodbav:"dispatchID"`
	TechnicianID string    `json:"technicianId" dynamodbav:"technicianID"`
	Type         string    `json:"type" dynamodbav:"type"`
	Amount       float64   `json:"amount" dynamodbav:"amount"`
	Currency     string    `json:"currency" dynamodbav:"currency"`
	Description  string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Date         string    `json:"date" dynamodbav:"date"`
	ReceiptPath  string    `json:"receiptPath,omitempty" dynamodbav:"receiptPath,omitempty"`
	Approval
	CreatedBy string    `json:"createdBy,omitempty" dynamodbav:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// MaterialUsage records articles consumed on a dispatch
type MaterialUsage struct {
	ID          string    `json:"id" dynamodbav:"id"`
	DispatchID  string    `json:"dispatchId" dynamodbav:"dispatchID"`
	ArticleID   string    `json:"articleId" dynamodbav:"articleID"`
	ArticleName string    `json:"articleName,omitempty" dynamodbav:"articleName,omitempty"`
	Quantity    float64   `json:"quantity" dynamodbav:"quantity"`
	UnitPrice   float64   `json:"unitPrice" dynamodbav:"unitPrice"`
	TotalPrice  float64   `json:"totalPrice" dynamodbav:"totalPrice"`
	UsedBy      string    `json:"usedBy,omitempty" dynamodbav:"usedBy,omitempty"`
	UsedAt      time.Time `json:"usedAt" dynamodbav:"usedAt"`
	Approval
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// Attachment holds metadata of a file uploaded against a dispatch
type Attachment struct {
	ID          string    `json:"id" dynamodbav:"id"`
	DispatchID  string    `json:"dispatchId" dynamodbav:"dispatchID"`
	FileName    string    `json:"fileName" dynamodbav:"fileName"`
	ContentType string    `json:"contentType" dynamodbav:"contentType"`
	SizeMB      float64   `json:"sizeMb" dynamodbav:"sizeMB"`
	Category    string    `json:"category,omitempty" dynamodbav:"category,omitempty"`
	StoragePath string    `json:"storagePath" dynamodbav:"storagePath"`
	UploadedBy  string    `json:"uploadedBy" dynamodbav:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt" dynamodbav:"uploadedAt"`
}

// Note is a free-text note on a dispatch
type Note struct {
	ID         string    `json:"id" dynamodbav:"id"`
	DispatchID string    `json:"dispatchId" dynamodbav:"dispatchID"`
	Content    string    `json:"content" dynamodbav:"content"`
	Category   string    `json:"category,omitempty" dynamodbav:"category,omitempty"`
	Priority   Priority  `json:"priority,omitempty" dynamodbav:"priority,omitempty"`
	CreatedBy  string    `json:"createdBy" dynamodbav:"createdBy"`
	CreatedAt  time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

type CreateTimeEntryRequest struct {
	TechnicianID string    `json:"technicianId" validate:"required"`
	WorkType     string    `json:"workType,omitempty" validate:"max=100"`
	StartTime    time.Time `json:"startTime" validate:"required"`
	EndTime      time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Description  string    `json:"description,omitempty" validate:"max=2000"`
	Billable     bool      `json:"billable"`
	HourlyRate   *float64  `json:"hourlyRate,omitempty" validate:"omitempty,min=0"`
}

type CreateExpenseRequest struct {
	TechnicianID string  `json:"technicianId" validate:"required"`
	Type         string  `json:"type" validate:"required,max=100"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	Currency     string  `json:"currency" validate:"omitempty,len=3"`
	Description  string  `json:"description,omitempty" validate:"max=2000"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	ReceiptPath  string  `json:"receiptPath,omitempty"`
}

type CreateMaterialUsageRequest struct {
	ArticleID   string     `json:"articleId" validate:"required"`
	ArticleName string     `json:"articleName,omitempty"`
	Quantity    float64    `json:"quantity" validate:"gt=0"`
	UnitPrice   float64    `json:"unitPrice" validate:"min=0"`
	UsedBy      string     `json:"usedBy,omitempty"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
}

type CreateNoteRequest struct {
	Content  string   `json:"content" validate:"required,max=5000"`
	Category string   `json:"category,omitempty" validate:"max=100"`
	Priority Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
}

// UploadAttachmentRequest carries metadata of a file already written to storage
type UploadAttachmentRequest struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Category    string
	StoragePath string
}
