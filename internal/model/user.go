package model

import "time"

// Role names stored in users.role.
const (
    RoleUser  = "user"
    RoleAdmin = "admin"
)

// ValidRole reports whether r is one of the known role names.
func ValidRole(r string) bool {
    return r == RoleUser || r == RoleAdmin
}

// User represents an application user record as stored in the
// `users` table. The struct is used by the repository and service
// layers only; responses are built from UserView so the password hash
// never leaves the process.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – address as entered; uniqueness is case-insensitive.
//  PasswordHash – bcrypt digest of the password.
//  FirstName    – given name, required.
//  LastName     – family name, required.
//  Role         – "user" or "admin".
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    FirstName    string    // users.first_name
    LastName     string    // users.last_name
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// UserView is the sanitized projection of a User returned to clients.
type UserView struct {
    ID        uint64 `json:"id"`
    Email     string `json:"email"`
    FirstName string `json:"firstName"`
    LastName  string `json:"lastName"`
    Role      string `json:"role"`
}

// View strips the password hash and timestamps from u.
func (u User) View() UserView {
    return UserView{
        ID:        u.ID,
        Email:     u.Email,
        FirstName: u.FirstName,
        LastName:  u.LastName,
        Role:      u.Role,
    }
}
