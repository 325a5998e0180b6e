package domain

import (
	"strings"
	"time"
)

// Department is the company department a user belongs to
type Department string

const (
	DepartmentGeneral Department = "general"
	DepartmentSales   Department = "sales"
	DepartmentSport   Department = "sport"
	DepartmentAdmin   Department = "admin"
)

// ParseDepartment converts a raw token into a Department
func ParseDepartment(s string) (Department, bool) {
	switch Department(strings.ToLower(strings.TrimSpace(s))) {
	case DepartmentGeneral:
		return DepartmentGeneral, true
	case DepartmentSales:
		return DepartmentSales, true
	case DepartmentSport:
		return DepartmentSport, true
	case DepartmentAdmin:
		return DepartmentAdmin, true
	}
	return "", false
}

// Role defines the user's permission level
type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var roleRank = map[Role]int{
	RoleUser:       0,
	RoleModerator:  1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// AtLeast reports whether r grants at least the permissions of min
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// User represents a bot user
type User struct {
	ID            int64
	TelegramID    int64
	Username      string
	FirstName     string
	LastName      string
	LanguageCode  string
	Department    Department
	Role          Role
	Phone         string
	Email         string
	Position      string
	ParkLocation  string
	IsBlocked     bool
	IsActive      bool
	BlockReason   string
	RegisteredAt  time.Time
	LastActivity  time.Time
	MessagesCount int
	CommandsCount int
}

// FullName returns the user's display name
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	return strings.Join(parts, " ")
}

// ProfileComplete reports whether the registration flow has been finished.
// All four fields are collected before the user reaches the main menu.
func (u *User) ProfileComplete() bool {
	return u.FirstName != "" && u.Department != "" && u.Position != "" && u.ParkLocation != ""
}

// UserPatch enumerates the updatable profile fields. A nil field means
// "keep the stored value"; a non-nil field overwrites it. The last
// activity timestamp is refreshed on every merge regardless of the patch.
type UserPatch struct {
	Username     *string
	FirstName    *string
	LastName     *string
	LanguageCode *string
	Department   *Department
	Position     *string
	ParkLocation *string
	Phone        *string
	Email        *string
}

// UserFilter narrows user listing and counting queries
type UserFilter struct {
	Department *Department
	Role       *Role
	IsBlocked  *bool
	IsActive   *bool
	Limit      int
	Offset     int
}

// CounterKind selects which per-user statistic to bump
type CounterKind string

const (
	CounterMessages CounterKind = "messages"
	CounterCommands CounterKind = "commands"
)
