package models

// Role represents a member's role inside an organization.
type Role string

const (
	RoleViewer        Role = "VIEWER"
	RoleMember        Role = "MEMBER"
	RoleModerator     Role = "MODERATOR"
	RoleAdmin         Role = "ADMIN"
	RolePresident     Role = "PRESIDENT"
	RoleSecretary     Role = "SECRETARY"
	RoleTreasurer     Role = "TREASURER"
	RoleVicePresident Role = "VICE_PRESIDENT"
)

// roleLevels orders roles for minimum-role comparisons. Secretary and
// treasurer sit at the moderator level; vice-president at the admin level.
var roleLevels = map[Role]int{
	RoleViewer:        0,
	RoleMember:        1,
	RoleModerator:     2,
	RoleSecretary:     2,
	RoleTreasurer:     2,
	RoleAdmin:         3,
	RoleVicePresident: 3,
	RolePresident:     4,
}

// Level returns the role's position in the organization hierarchy.
// Unknown roles rank at the member level.
func (r Role) Level() int {
	if lvl, ok := roleLevels[r]; ok {
		return lvl
	}
	return roleLevels[RoleMember]
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// roleLetters is the single-letter wire alphabet for roles.
var roleLetters = map[byte]Role{
	'P': RolePresident,
	'V': RoleVicePresident,
	'S': RoleSecretary,
	'T': RoleTreasurer,
	'M': RoleMember,
	'A': RoleAdmin,
	'D': RoleModerator,
	'W': RoleViewer,
}

var roleToLetter = map[Role]byte{
	RolePresident:     'P',
	RoleVicePresident: 'V',
	RoleSecretary:     'S',
	RoleTreasurer:     'T',
	RoleMember:        'M',
	RoleAdmin:         'A',
	RoleModerator:     'D',
	RoleViewer:        'W',
}

// RoleFromLetter maps a wire letter to its role. The second return value is
// false for letters outside the alphabet; callers default those to MEMBER.
func RoleFromLetter(letter byte) (Role, bool) {
	role, ok := roleLetters[letter]
	if !ok {
		return RoleMember, false
	}
	return role, true
}

// Letter returns the role's wire letter. Roles outside the alphabet encode
// as the member letter.
func (r Role) Letter() byte {
	if l, ok := roleToLetter[r]; ok {
		return l
	}
	return 'M'
}

// UserType classifies the principal within the platform.
type UserType string

const (
	UserTypeSuperAdmin          UserType = "SUPER_ADMIN"
	UserTypeOrganizationManager UserType = "ORGANIZATION_MANAGER"
	UserTypeInstituteAdmin      UserType = "INSTITUTE_ADMIN"
	UserTypeGlobalAdmin         UserType = "GLOBAL_ADMIN"
	UserTypeInstituteUser       UserType = "INSTITUTE_USER"
	UserTypeStudent             UserType = "STUDENT"
	UserTypeTeacher             UserType = "TEACHER"
	UserTypeParent              UserType = "PARENT"
	UserTypeUser                UserType = "USER"
	UserTypeAttendanceMarker    UserType = "ATTENDANCE_MARKER"
)

// userTypeCodes is the two-letter wire alphabet for user types.
// ATTENDANCE_MARKER has no wire code; it encodes as an omitted field.
var userTypeCodes = map[string]UserType{
	"SA": UserTypeSuperAdmin,
	"OM": UserTypeOrganizationManager,
	"IA": UserTypeInstituteAdmin,
	"GA": UserTypeGlobalAdmin,
	"IU": UserTypeInstituteUser,
	"ST": UserTypeStudent,
	"TC": UserTypeTeacher,
	"PA": UserTypeParent,
	"U":  UserTypeUser,
}

var userTypeToCode = map[UserType]string{
	UserTypeSuperAdmin:          "SA",
	UserTypeOrganizationManager: "OM",
	UserTypeInstituteAdmin:      "IA",
	UserTypeGlobalAdmin:         "GA",
	UserTypeInstituteUser:       "IU",
	UserTypeStudent:             "ST",
	UserTypeTeacher:             "TC",
	UserTypeParent:              "PA",
	UserTypeUser:                "U",
}

// UserTypeFromCode maps a two-letter wire code to its user type.
// Unknown codes map to USER with ok=false.
func UserTypeFromCode(code string) (UserType, bool) {
	ut, ok := userTypeCodes[code]
	if !ok {
		return UserTypeUser, false
	}
	return ut, true
}

// Code returns the user type's two-letter wire code. ok is false for types
// without a code (they are omitted on the wire).
func (t UserType) Code() (string, bool) {
	code, ok := userTypeToCode[t]
	return code, ok
}

// IsValid reports whether t is a known user type.
func (t UserType) IsValid() bool {
	if t == UserTypeAttendanceMarker {
		return true
	}
	_, ok := userTypeToCode[t]
	return ok
}

// OrganizationMembership binds a principal to an organization with a role.
type OrganizationMembership struct {
	OrganizationID string `json:"organizationId"`
	Role           Role   `json:"role"`
}

// AccessClaims is the canonical, post-normalization claim set. Every decoded
// wire shape normalizes into this form before any authorization decision.
type AccessClaims struct {
	SubjectID               string                         `json:"subjectId"`
	Email                   string                         `json:"email"`
	DisplayName             string                         `json:"displayName"`
	OrganizationMemberships []OrganizationMembership       `json:"organizationMemberships,omitempty"`
	InstituteIDs            []string                       `json:"instituteIds,omitempty"`
	UserType                UserType                       `json:"userType,omitempty"`
	IsGlobalAdmin           bool                           `json:"isGlobalAdmin"`
	AdminAccess             map[string]bool                `json:"adminAccess,omitempty"`
	HierarchicalAccess      map[string]map[string][]string `json:"hierarchicalAccess,omitempty"`
	LinkedStudentIDs        []string                       `json:"linkedStudentIds,omitempty"`
	IssuedAt                int64                          `json:"issuedAt,omitempty"`
	ExpiresAt               int64                          `json:"expiresAt,omitempty"`
}

// MembershipFor returns the membership for the given organization, or nil.
func (c *AccessClaims) MembershipFor(organizationID string) *OrganizationMembership {
	for i := range c.OrganizationMemberships {
		if c.OrganizationMemberships[i].OrganizationID == organizationID {
			return &c.OrganizationMemberships[i]
		}
	}
	return nil
}
