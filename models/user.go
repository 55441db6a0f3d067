package models

import (
	"strings"
	"time"
)

// UserRole represents the role of a user
type UserRole string

const (
	UserRoleTechnician UserRole = "technician"
	UserRoleDispatcher UserRole = "dispatcher"
	UserRoleManager    UserRole = "manager"
	UserRoleAdmin      UserRole = "admin"
)

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is the part of a user account the planning engine reads
type User struct {
	ID        string     `json:"id" dynamodbav:"id"`
	Email     string     `json:"email" dynamodbav:"email"`
	FirstName string     `json:"firstName" dynamodbav:"firstName"`
	LastName  string     `json:"lastName" dynamodbav:"lastName"`
	Role      UserRole   `json:"role" dynamodbav:"role"`
	Status    UserStatus `json:"status" dynamodbav:"status"`
	Skills    []string   `json:"skills,omitempty" dynamodbav:"skills,stringset,omitempty"`
	CreatedAt time.Time  `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" dynamodbav:"updatedAt"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsTechnician reports whether the user holds the technician role
func (u *User) IsTechnician() bool {
	return u != nil && u.Role == UserRoleTechnician
}

// HasSkills reports whether the user has every one of the given skills
func (u *User) HasSkills(skills []string) bool {
	return containsAll(u.Skills, skills)
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
