package models

// Role is the school role of a user. Permissions are granted per role.
type Role string

const (
	RoleTeacher   Role = "teacher"
	RoleReferent  Role = "referent"
	RoleDirection Role = "direction"
	RoleAdmin     Role = "admin"
	RoleStudent   Role = "student"
)

// User is the minimal projection of a platform user needed by the catalog.
type User struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Actor identifies who performs an operation and within which tenant.
type Actor struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     Role   `json:"role"`
}
