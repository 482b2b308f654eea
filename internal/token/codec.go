package token

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/campuskit/access-api/internal/models"
	"go.uber.org/zap"
)

const (
	// defaultDisplayName is substituted when a shape omits the display name.
	defaultDisplayName = "User"
	// synthesizedEmailFormat fills in the email for admin-only shapes that
	// never carried one. Deployed token populations depend on this exact
	// pattern, so it must not change.
	synthesizedEmailFormat = "admin-%s@system.local"
)

// Codec maps AccessClaims to and from the compact wire representations.
// Decoding handles every known shape; encoding always produces the current
// compact form. Safe for concurrent use.
type Codec struct {
	log *zap.Logger
}

// NewCodec creates a codec. A nil logger disables warning logs.
func NewCodec(log *zap.Logger) *Codec {
	if log == nil {
		log = zap.NewNop()
	}
	return &Codec{log: log}
}

// Encode serializes claims into the current compact wire form. Claims
// carrying institute-admin or hierarchical grants use the role-compact
// fields; everything else uses the ultra-compact organization form.
func (c *Codec) Encode(claims *models.AccessClaims) map[string]any {
	if len(claims.AdminAccess) > 0 || len(claims.HierarchicalAccess) > 0 || len(claims.LinkedStudentIDs) > 0 {
		return c.encodeRoleCompact(claims)
	}
	return c.encodeUltraCompact(claims)
}

func (c *Codec) encodeUltraCompact(claims *models.AccessClaims) map[string]any {
	payload := map[string]any{
		"s": claims.SubjectID,
		"e": claims.Email,
	}

	if claims.DisplayName != "" && claims.DisplayName != defaultDisplayName {
		payload["n"] = claims.DisplayName
	}

	// The organization array doubles as the shape discriminator, so it is
	// emitted even when empty.
	orgs := make([]any, 0, len(claims.OrganizationMemberships))
	for _, m := range claims.OrganizationMemberships {
		orgs = append(orgs, string(m.Role.Letter())+m.OrganizationID)
	}
	payload["o"] = orgs

	if len(claims.InstituteIDs) > 0 {
		ins := make([]any, 0, len(claims.InstituteIDs))
		for _, id := range claims.InstituteIDs {
			if n, err := strconv.Atoi(id); err == nil {
				ins = append(ins, n)
			} else {
				ins = append(ins, id)
			}
		}
		payload["ins"] = ins
	}

	if code, ok := claims.UserType.Code(); ok {
		payload["t"] = code
	}
	if claims.IsGlobalAdmin {
		payload["g"] = 1
	}
	stampTimes(payload, claims)
	return payload
}

func (c *Codec) encodeRoleCompact(claims *models.AccessClaims) map[string]any {
	code, ok := claims.UserType.Code()
	if !ok {
		code = "U"
	}
	payload := map[string]any{
		"s":  claims.SubjectID,
		"ut": code,
	}

	if len(claims.AdminAccess) > 0 {
		aa := make(map[string]any, len(claims.AdminAccess))
		for id, granted := range claims.AdminAccess {
			if granted {
				aa[id] = 1
			}
		}
		payload["aa"] = aa
	}
	if len(claims.HierarchicalAccess) > 0 {
		ha := make(map[string]any, len(claims.HierarchicalAccess))
		for instituteID, classes := range claims.HierarchicalAccess {
			cm := make(map[string]any, len(classes))
			for classID, subjects := range classes {
				codes := make([]any, 0, len(subjects))
				for _, s := range subjects {
					codes = append(codes, s)
				}
				cm[classID] = codes
			}
			ha[instituteID] = cm
		}
		payload["ha"] = ha
	}
	if len(claims.LinkedStudentIDs) > 0 {
		sd := make([]any, 0, len(claims.LinkedStudentIDs))
		for _, id := range claims.LinkedStudentIDs {
			sd = append(sd, id)
		}
		payload["sd"] = sd
	}
	if claims.IsGlobalAdmin {
		payload["g"] = 1
	}
	stampTimes(payload, claims)
	return payload
}

func stampTimes(payload map[string]any, claims *models.AccessClaims) {
	if claims.IssuedAt > 0 {
		payload["iat"] = claims.IssuedAt
	}
	if claims.ExpiresAt > 0 {
		payload["exp"] = claims.ExpiresAt
	}
}

// Decode classifies the payload shape and reconstructs the canonical claim
// set, applying the documented defaults for fields the shape omits.
func (c *Codec) Decode(payload map[string]any) (*models.AccessClaims, error) {
	shape, err := DetectShape(payload)
	if err != nil {
		return nil, err
	}

	var claims *models.AccessClaims
	switch shape {
	case ShapeUltraCompact:
		claims = c.decodeUltraCompact(payload)
	case ShapeLegacyStandard:
		claims = c.decodeLegacyStandard(payload)
	case ShapeRoleCompact:
		claims = c.decodeRoleCompact(payload)
	case ShapeLegacyMinimal:
		claims = c.decodeLegacyMinimal(payload)
	default:
		return nil, newError(ErrCodeFormat, fmt.Errorf("unhandled shape %v", shape))
	}

	if claims.SubjectID == "" {
		return nil, newError(ErrCodeFormat, fmt.Errorf("missing subject id"))
	}
	if claims.IssuedAt > 0 && claims.ExpiresAt > 0 && claims.ExpiresAt <= claims.IssuedAt {
		return nil, newError(ErrCodeFormat, fmt.Errorf("expiry %d not after issuance %d", claims.ExpiresAt, claims.IssuedAt))
	}
	return claims, nil
}

func (c *Codec) decodeUltraCompact(payload map[string]any) *models.AccessClaims {
	claims := &models.AccessClaims{
		SubjectID:   asString(payload["s"]),
		Email:       asString(payload["e"]),
		DisplayName: asString(payload["n"]),
		UserType:    models.UserTypeUser,
	}
	if claims.DisplayName == "" {
		claims.DisplayName = defaultDisplayName
	}

	if raw, ok := payload["o"].([]any); ok {
		for _, entry := range raw {
			compact := asString(entry)
			if compact == "" {
				continue
			}
			// The split point is always first character vs remainder; no
			// letter is ever part of an organization id.
			role, known := models.RoleFromLetter(compact[0])
			if !known {
				c.log.Warn("unknown_role_letter",
					zap.String("letter", compact[:1]),
					zap.String("subject_id", claims.SubjectID),
				)
			}
			claims.OrganizationMemberships = append(claims.OrganizationMemberships, models.OrganizationMembership{
				OrganizationID: compact[1:],
				Role:           role,
			})
		}
	}

	if raw, ok := payload["ins"].([]any); ok {
		for _, entry := range raw {
			if id := asID(entry); id != "" {
				claims.InstituteIDs = append(claims.InstituteIDs, id)
			}
		}
	}

	if code := asString(payload["t"]); code != "" {
		ut, known := models.UserTypeFromCode(code)
		if !known {
			c.log.Warn("unknown_user_type_code",
				zap.String("code", code),
				zap.String("subject_id", claims.SubjectID),
			)
		}
		claims.UserType = ut
	}

	claims.IsGlobalAdmin = asFlag(payload["g"])
	claims.IssuedAt = asInt64(payload["iat"])
	claims.ExpiresAt = asInt64(payload["exp"])
	return claims
}

func (c *Codec) decodeRoleCompact(payload map[string]any) *models.AccessClaims {
	claims := &models.AccessClaims{
		SubjectID:   asString(payload["s"]),
		DisplayName: defaultDisplayName,
		UserType:    models.UserTypeUser,
	}

	if code := asString(payload["ut"]); code != "" {
		ut, known := models.UserTypeFromCode(code)
		if !known {
			c.log.Warn("unknown_user_type_code",
				zap.String("code", code),
				zap.String("subject_id", claims.SubjectID),
			)
		}
		claims.UserType = ut
	}

	claims.Email = asString(payload["e"])
	if claims.Email == "" {
		claims.Email = fmt.Sprintf(synthesizedEmailFormat, claims.SubjectID)
	}
	if name := asString(payload["n"]); name != "" {
		claims.DisplayName = name
	}

	if raw, ok := payload["aa"].(map[string]any); ok {
		claims.AdminAccess = make(map[string]bool, len(raw))
		for instituteID, v := range raw {
			if asFlag(v) {
				claims.AdminAccess[instituteID] = true
			}
		}
	}

	if raw, ok := payload["ha"].(map[string]any); ok {
		claims.HierarchicalAccess = make(map[string]map[string][]string, len(raw))
		for instituteID, rawClasses := range raw {
			classes, ok := rawClasses.(map[string]any)
			if !ok {
				continue
			}
			cm := make(map[string][]string, len(classes))
			for classID, rawSubjects := range classes {
				subjects, ok := rawSubjects.([]any)
				if !ok {
					continue
				}
				codes := make([]string, 0, len(subjects))
				for _, s := range subjects {
					if code := asString(s); code != "" {
						codes = append(codes, code)
					}
				}
				cm[classID] = codes
			}
			claims.HierarchicalAccess[instituteID] = cm
		}
	}

	if raw, ok := payload["sd"].([]any); ok {
		for _, entry := range raw {
			if id := asID(entry); id != "" {
				claims.LinkedStudentIDs = append(claims.LinkedStudentIDs, id)
			}
		}
	}

	claims.IsGlobalAdmin = asFlag(payload["g"])
	claims.IssuedAt = asInt64(payload["iat"])
	claims.ExpiresAt = asInt64(payload["exp"])
	return claims
}

func (c *Codec) decodeLegacyStandard(payload map[string]any) *models.AccessClaims {
	claims := c.decodeLegacyMinimal(payload)

	if raw, ok := payload["organizations"].([]any); ok {
		for _, entry := range raw {
			org, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			role := models.Role(asString(org["role"]))
			if !role.IsValid() {
				c.log.Warn("unknown_role_name",
					zap.String("role", string(role)),
					zap.String("subject_id", claims.SubjectID),
				)
				role = models.RoleMember
			}
			claims.OrganizationMemberships = append(claims.OrganizationMemberships, models.OrganizationMembership{
				OrganizationID: asID(org["organizationId"]),
				Role:           role,
			})
		}
	}
	return claims
}

func (c *Codec) decodeLegacyMinimal(payload map[string]any) *models.AccessClaims {
	claims := &models.AccessClaims{
		SubjectID:   asID(payload["sub"]),
		Email:       asString(payload["email"]),
		DisplayName: asString(payload["name"]),
		UserType:    models.UserTypeUser,
	}
	if claims.DisplayName == "" {
		claims.DisplayName = defaultDisplayName
	}

	if ut := models.UserType(asString(payload["userType"])); ut != "" {
		if ut.IsValid() {
			claims.UserType = ut
		} else {
			c.log.Warn("unknown_user_type",
				zap.String("user_type", string(ut)),
				zap.String("subject_id", claims.SubjectID),
			)
		}
	}

	if raw, ok := payload["institutes"].([]any); ok {
		for _, entry := range raw {
			if id := asID(entry); id != "" {
				claims.InstituteIDs = append(claims.InstituteIDs, id)
			}
		}
	}

	claims.IsGlobalAdmin = asFlag(payload["isGlobalAdmin"])
	claims.IssuedAt = asInt64(payload["iat"])
	claims.ExpiresAt = asInt64(payload["exp"])
	return claims
}

// asString returns v when it is a string, else "".
func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asID renders strings and JSON numbers as an id string. Numeric ids lose
// their number-ness on the wire (the ins array is numeric, claims ids are
// strings), so both forms must be accepted.
func asID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// asInt64 converts JSON numbers to int64, returning 0 for anything else.
func asInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// asFlag interprets the asymmetric presence encodings: the number 1, the
// string "1", and true all mean set; absence or anything else means false.
func asFlag(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case string:
		return t == "1"
	case json.Number:
		return t.String() == "1"
	default:
		return false
	}
}
