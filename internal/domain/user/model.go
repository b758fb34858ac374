package user

import "time"

// Role separates mentors (teachers) from students.
type Role string

const (
	RoleMentor  Role = "mentor"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMentor || r == RoleStudent
}

// User is a member of a school.
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	SchoolID  string    `json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Identity returns the caller identity for u.
func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Role: u.Role, SchoolID: u.SchoolID}
}

// Identity is the resolved caller every operation runs as.
type Identity struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	SchoolID string `json:"school_id"`
}

// IsMentor reports whether the caller is a mentor.
func (i Identity) IsMentor() bool { return i.Role == RoleMentor }

// IsStudent reports whether the caller is a student.
func (i Identity) IsStudent() bool { return i.Role == RoleStudent }
