package model

import "gorm.io/gorm"

// AutoMigrate creates or updates the schema for all engine tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Template{},
		&Step{},
		&Transition{},
		&ProcessInstance{},
		&StepExecution{},
		&Document{},
		&AuditLogEntry{},
	)
}
