package model

import "time"

// Platform roles.  The order of Roles matters: it is the precedence used
// when scanning the legacy per-role cookie names.
const (
	RoleAdmin      = "admin"
	RoleAsesor     = "asesor"
	RoleEstudiante = "estudiante"
)

// Roles lists every role the platform issues sessions for, in cookie-lookup
// precedence order.
var Roles = []string{RoleAdmin, RoleAsesor, RoleEstudiante}

// ValidRole reports whether r is one of the platform roles.
func ValidRole(r string) bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User mirrors the `users` table.  StudentID links an estudiante account to
// its student record; it is zero for admins, advisors and students that have
// not been enrolled yet.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of RoleAdmin, RoleAsesor, RoleEstudiante.
//  StudentID    – linked students.id (0 when not linked).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	StudentID    uint64    // users.student_id (nullable in schema, 0 here)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
