package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentKind classifies an attached document.
type DocumentKind string

const (
	DocumentKindDocument    DocumentKind = "DOCUMENT"
	DocumentKindImage       DocumentKind = "IMAGE"
	DocumentKindSpreadsheet DocumentKind = "SPREADSHEET"
	DocumentKindPDF         DocumentKind = "PDF"
	DocumentKindOther       DocumentKind = "OTHER"
)

// Document is a file attached to a step execution. It is exclusively owned
// by that execution and removed with it.
type Document struct {
	BaseModel
	ExecutionID  uuid.UUID    `gorm:"type:uuid;column:execution_id;not null;index" json:"executionId"`
	Name         string       `gorm:"type:varchar(200);column:name;not null" json:"name"`
	Kind         DocumentKind `gorm:"type:varchar(20);column:kind;not null" json:"kind"`
	StorageKey   string       `gorm:"type:varchar(255);column:storage_key;not null" json:"-"`
	Size         int64        `gorm:"column:size;not null" json:"size"`
	UploadedByID *uuid.UUID   `gorm:"type:uuid;column:uploaded_by_id" json:"uploadedById,omitempty"`
	UploadedAt   time.Time    `gorm:"type:timestamptz;column:uploaded_at;not null" json:"uploadedAt"`

	// Relationships
	Execution  *StepExecution `gorm:"foreignKey:ExecutionID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	UploadedBy *User          `gorm:"foreignKey:UploadedByID;references:ID" json:"uploadedBy,omitempty"`
}

func (d *Document) TableName() string {
	return "documents"
}

// FormattedSize returns the document size in human readable units.
func (d *Document) FormattedSize() string {
	if d.Size <= 0 {
		return "0 bytes"
	}
	size := float64(d.Size)
	for _, unit := range []string{"bytes", "KB", "MB", "GB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.1f TB", size)
}
