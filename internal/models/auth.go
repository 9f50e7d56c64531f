package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin  UserRole = "SUPER_ADMIN"
	RoleSchoolAdmin UserRole = "SCHOOL_ADMIN"
	RoleTeacher     UserRole = "TEACHER"
)

// JWTClaims represents the access token payload issued by the identity
// service. SchoolID is empty for super admins, who operate across tenants.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	SchoolID string   `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}

// CanAccessSchool reports whether the actor may operate on the given tenant.
func (c *JWTClaims) CanAccessSchool(schoolID string) bool {
	if c == nil {
		return false
	}
	if c.Role == RoleSuperAdmin {
		return true
	}
	return c.SchoolID != "" && c.SchoolID == schoolID
}
