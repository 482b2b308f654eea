package token

import "fmt"

// Shape identifies one of the known wire shapes a decoded token payload can
// take. The platform has accumulated four over time and all must keep
// validating.
type Shape int

const (
	// ShapeUnknown means no known shape matched.
	ShapeUnknown Shape = iota
	// ShapeUltraCompact is the current shape: single-letter fields with
	// role-letter-prefixed organization strings (s, e, o).
	ShapeUltraCompact
	// ShapeLegacyStandard is the old verbose shape (sub, email, organizations).
	ShapeLegacyStandard
	// ShapeRoleCompact carries institute admin or hierarchical grants
	// (s, ut, plus aa/ha/sd).
	ShapeRoleCompact
	// ShapeLegacyMinimal is the verbose shape without organizations.
	ShapeLegacyMinimal
)

// String returns the shape name for logging.
func (s Shape) String() string {
	switch s {
	case ShapeUltraCompact:
		return "ultra-compact"
	case ShapeLegacyStandard:
		return "legacy-standard"
	case ShapeRoleCompact:
		return "role-compact"
	case ShapeLegacyMinimal:
		return "legacy-minimal"
	default:
		return "unknown"
	}
}

// DetectShape classifies a raw decoded payload into one of the known shapes.
// The rules form a priority list, not independent predicates: a payload can
// satisfy more than one minimal field set, and the first match wins. The
// same field name means different things in different shapes, so callers
// must classify before interpreting any field.
func DetectShape(payload map[string]any) (Shape, error) {
	if payload == nil {
		return ShapeUnknown, newError(ErrCodeFormat, fmt.Errorf("empty payload"))
	}
	if hasAll(payload, "s", "e", "o") {
		return ShapeUltraCompact, nil
	}
	if hasAll(payload, "sub", "email", "organizations") {
		return ShapeLegacyStandard, nil
	}
	if hasAll(payload, "s", "ut") {
		return ShapeRoleCompact, nil
	}
	if hasAll(payload, "sub", "email") {
		return ShapeLegacyMinimal, nil
	}
	return ShapeUnknown, newError(ErrCodeFormat, fmt.Errorf("payload matches no known token shape"))
}

func hasAll(payload map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := payload[k]; !ok {
			return false
		}
	}
	return true
}
