package model

import "github.com/google/uuid"

// StepCategory classifies a step for display and reporting. It carries no
// behavioral difference in the engine.
type StepCategory string

const (
	StepCategoryAnalysis     StepCategory = "ANALYSIS"
	StepCategoryApproval     StepCategory = "APPROVAL"
	StepCategoryExecution    StepCategory = "EXECUTION"
	StepCategoryReview       StepCategory = "REVIEW"
	StepCategoryFinalization StepCategory = "FINALIZATION"
)

// Valid reports whether c is one of the known step categories.
func (c StepCategory) Valid() bool {
	switch c {
	case StepCategoryAnalysis, StepCategoryApproval, StepCategoryExecution,
		StepCategoryReview, StepCategoryFinalization:
		return true
	}
	return false
}

// Template defines a reusable process flow as an ordered set of steps.
// Once instances reference it, the template must never be hard-deleted
// (OnDelete:RESTRICT on ProcessInstance.TemplateID).
type Template struct {
	BaseModel
	Name        string     `gorm:"type:varchar(200);column:name;not null" json:"name"`
	Description string     `gorm:"type:text;column:description" json:"description"`
	Active      bool       `gorm:"column:active;not null;default:true" json:"active"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;column:created_by_id" json:"createdById,omitempty"`

	// Relationships
	CreatedBy *User  `gorm:"foreignKey:CreatedByID;references:ID" json:"-"`
	Steps     []Step `gorm:"foreignKey:TemplateID;references:ID" json:"steps,omitempty"`
}

func (t *Template) TableName() string {
	return "templates"
}

// Step is a single stage of a template. (TemplateID, Ordinal) is unique;
// ordinals of a usable template form a contiguous sequence starting at 1.
type Step struct {
	BaseModel
	TemplateID        uuid.UUID    `gorm:"type:uuid;column:template_id;not null;uniqueIndex:idx_steps_template_ordinal" json:"templateId"`
	Name              string       `gorm:"type:varchar(200);column:name;not null" json:"name"`
	Description       string       `gorm:"type:text;column:description" json:"description"`
	Category          StepCategory `gorm:"type:varchar(20);column:category;not null" json:"category"`
	Ordinal           int          `gorm:"column:ordinal;not null;uniqueIndex:idx_steps_template_ordinal" json:"ordinal"`
	DeadlineDays      int          `gorm:"column:deadline_days;not null;default:5" json:"deadlineDays"`
	AllowsAttachments bool         `gorm:"column:allows_attachments;not null;default:true" json:"allowsAttachments"`
	RequiresApproval  bool         `gorm:"column:requires_approval;not null;default:false" json:"requiresApproval"`

	// Relationships
	Template        *Template `gorm:"foreignKey:TemplateID;references:ID" json:"-"`
	AuthorizedUsers []User    `gorm:"many2many:step_authorized_users" json:"authorizedUsers,omitempty"`
}

func (s *Step) TableName() string {
	return "steps"
}

// Transition is a directed edge between two steps of the same template,
// optionally labeled with a condition. Multiple transitions may leave the
// same source step; (source, destination, condition) is unique.
type Transition struct {
	BaseModel
	SourceStepID      uuid.UUID `gorm:"type:uuid;column:source_step_id;not null;uniqueIndex:idx_transitions_edge" json:"sourceStepId"`
	DestinationStepID uuid.UUID `gorm:"type:uuid;column:destination_step_id;not null;uniqueIndex:idx_transitions_edge" json:"destinationStepId"`
	Condition         string    `gorm:"type:varchar(200);column:condition;uniqueIndex:idx_transitions_edge" json:"condition"`
	Active            bool      `gorm:"column:active;not null;default:true" json:"active"`

	// Relationships
	SourceStep      *Step `gorm:"foreignKey:SourceStepID;references:ID" json:"-"`
	DestinationStep *Step `gorm:"foreignKey:DestinationStepID;references:ID" json:"destinationStep,omitempty"`
}

func (t *Transition) TableName() string {
	return "transitions"
}
