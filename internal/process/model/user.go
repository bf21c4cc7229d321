package model

// Role is the closed set of user roles recognized by the authorization
// evaluator. Decisions match on this type, never on raw strings.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleOperator Role = "OPERATOR"
	RoleViewer   Role = "VIEWER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// User is the identity record consumed by the engine. Authentication is a
// collaborator concern; the engine only reads role and relationships.
type User struct {
	BaseModel
	Username   string `gorm:"type:varchar(150);column:username;not null;uniqueIndex" json:"username"`
	FullName   string `gorm:"type:varchar(200);column:full_name" json:"fullName"`
	Email      string `gorm:"type:varchar(254);column:email" json:"email"`
	Department string `gorm:"type:varchar(100);column:department" json:"department"`
	Role       Role   `gorm:"type:varchar(20);column:role;not null" json:"role"`
	Active     bool   `gorm:"column:active;not null;default:true" json:"active"`
}

func (u *User) TableName() string {
	return "users"
}
