package schema

import "strings"

// RoutineKind distinguishes procedures from functions.
type RoutineKind string

const (
	KindProcedure RoutineKind = "PROCEDURE"
	KindFunction  RoutineKind = "FUNCTION"
)

// Parameter directions.
const (
	ParamIn    = "IN"
	ParamOut   = "OUT"
	ParamInOut = "INOUT"
)

// RoutineSchema describes a stored procedure or function, standalone or a
// package member ("PKG.MEMBER").
type RoutineSchema struct {
	Kind         RoutineKind        `json:"kind"`
	Schema       string             `json:"schema"`
	ResourceName string             `json:"resource_name"`
	Name         string             `json:"name"`
	InternalName string             `json:"internal_name"`
	QuotedName   string             `json:"quoted_name"`
	Package      string             `json:"package,omitempty"`
	ReturnType   string             `json:"return_type,omitempty"`
	Parameters   []*ParameterSchema `json:"params"`
}

// Member returns the routine name without its package qualifier.
func (r *RoutineSchema) Member() string {
	if i := strings.IndexByte(r.ResourceName, '.'); i >= 0 {
		return r.ResourceName[i+1:]
	}
	return r.ResourceName
}

// Parameter looks a parameter up case-insensitively.
func (r *RoutineSchema) Parameter(name string) (*ParameterSchema, bool) {
	for _, p := range r.Parameters {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}

// ParameterSchema is one routine argument. Position is 1-based.
type ParameterSchema struct {
	Name         string `json:"name"`
	Position     int    `json:"position"`
	ParamType    string `json:"param_type"`
	Type         string `json:"type"`
	DbType       string `json:"db_type"`
	Length       *int   `json:"length"`
	Precision    *int   `json:"precision"`
	Scale        *int   `json:"scale"`
	DefaultValue any    `json:"default"`
}

// IsOutput reports whether the parameter receives a value back.
func (p *ParameterSchema) IsOutput() bool {
	return p.ParamType == ParamOut || p.ParamType == ParamInOut
}

// IsRefCursor reports whether the declared type is a REF CURSOR.
func (p *ParameterSchema) IsRefCursor() bool {
	return strings.EqualFold(strings.TrimSpace(p.DbType), "REF CURSOR")
}

// NormalizeDirection folds catalog spellings ("IN/OUT") into IN, OUT or INOUT.
func NormalizeDirection(s string) string {
	d := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(s, "/", ""), " ", ""))
	switch d {
	case ParamOut, ParamInOut:
		return d
	default:
		return ParamIn
	}
}
