// Package access answers authorization questions over normalized claims.
// Every predicate is pure and total: callers translate false into an
// authorization-denied outcome, nothing here returns an error.
package access

import "github.com/campuskit/access-api/internal/models"

// HasGlobalAccess reports whether the principal holds platform-wide access.
// Global access is always sufficient at any depth of the hierarchy, so the
// narrower predicates check it first.
func HasGlobalAccess(c *models.AccessClaims) bool {
	if c == nil {
		return false
	}
	if c.IsGlobalAdmin {
		return true
	}
	return c.UserType == models.UserTypeSuperAdmin || c.UserType == models.UserTypeOrganizationManager
}

// HasOrganizationRole reports whether the principal holds at least the
// minimum role in the given organization.
func HasOrganizationRole(c *models.AccessClaims, organizationID string, minimum models.Role) bool {
	if c == nil {
		return false
	}
	m := c.MembershipFor(organizationID)
	if m == nil {
		return false
	}
	return m.Role.Level() >= minimum.Level()
}

// HasInstituteAccess reports whether the principal can access the institute
// through any of the grant paths: global, coarse per-institute admin,
// hierarchical grants, or the legacy institute-id array.
func HasInstituteAccess(c *models.AccessClaims, instituteID string) bool {
	if c == nil {
		return false
	}
	if HasGlobalAccess(c) {
		return true
	}
	if c.AdminAccess[instituteID] {
		return true
	}
	if _, ok := c.HierarchicalAccess[instituteID]; ok {
		return true
	}
	for _, id := range c.InstituteIDs {
		if id == instituteID {
			return true
		}
	}
	return false
}

// HasClassAccess reports whether the principal can access the class. Only
// the global and admin paths bypass the class-level grant; the legacy
// institute-id array does not reach below the institute level.
func HasClassAccess(c *models.AccessClaims, instituteID, classID string) bool {
	if c == nil {
		return false
	}
	if HasGlobalAccess(c) || c.AdminAccess[instituteID] {
		return true
	}
	classes, ok := c.HierarchicalAccess[instituteID]
	if !ok {
		return false
	}
	_, ok = classes[classID]
	return ok
}

// HasSubjectAccess reports whether the principal can access the subject
// within the class.
func HasSubjectAccess(c *models.AccessClaims, instituteID, classID, subjectCode string) bool {
	if c == nil {
		return false
	}
	if HasGlobalAccess(c) || c.AdminAccess[instituteID] {
		return true
	}
	classes, ok := c.HierarchicalAccess[instituteID]
	if !ok {
		return false
	}
	for _, code := range classes[classID] {
		if code == subjectCode {
			return true
		}
	}
	return false
}

// HasParentAccessTo reports whether a parent principal is linked to the
// student. Non-parent user types never qualify, whatever their links.
func HasParentAccessTo(c *models.AccessClaims, studentID string) bool {
	if c == nil || c.UserType != models.UserTypeParent {
		return false
	}
	for _, id := range c.LinkedStudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
