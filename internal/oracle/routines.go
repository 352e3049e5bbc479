package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

const standaloneRoutinesSQL = `
SELECT owner, object_name
  FROM all_procedures
 WHERE owner = :1 AND object_type = :2
 ORDER BY object_name`

// Package members are functions when they have a position-0 argument
// (the return value) and procedures otherwise.
const packageRoutinesSQL = `
SELECT DISTINCT p.owner, p.object_name AS package_name, p.procedure_name
  FROM all_procedures p
 WHERE p.owner = :1 AND p.object_type = 'PACKAGE' AND p.procedure_name IS NOT NULL
   AND %s EXISTS (SELECT 1 FROM all_arguments a
                   WHERE a.owner = p.owner AND a.package_name = p.object_name
                     AND a.object_name = p.procedure_name
                     AND a.data_level = 0 AND a.position = 0)
 ORDER BY p.object_name, p.procedure_name`

const parametersSQL = `
SELECT argument_name, position, sequence, data_type, in_out, data_length, data_precision,
       data_scale, default_value, char_length, overload
  FROM all_arguments
 WHERE owner = :1 AND object_name = :2 AND data_level = 0 AND %s
 ORDER BY overload, sequence`

// ListRoutines returns the standalone and package-member routines of kind
// in schemaFilter (the default schema when empty). Parameters are not
// loaded; use DescribeRoutine for that.
func (e *Engine) ListRoutines(ctx context.Context, kind schema.RoutineKind, schemaFilter string) ([]*schema.RoutineSchema, error) {
	if kind != schema.KindProcedure && kind != schema.KindFunction {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown routine kind %q", kind)
	}
	schemaName, def, err := e.resolveSchema(ctx, schemaFilter)
	if err != nil {
		return nil, err
	}

	standalone, err := e.selectRecords(ctx, "routines", standaloneRoutinesSQL, schemaName, string(kind))
	if err != nil {
		return nil, err
	}
	negate := "NOT"
	if kind == schema.KindFunction {
		negate = ""
	}
	members, err := e.selectRecords(ctx, "routines", fmt.Sprintf(packageRoutinesSQL, negate), schemaName)
	if err != nil {
		return nil, err
	}

	out := make([]*schema.RoutineSchema, 0, len(standalone)+len(members))
	for _, r := range standalone {
		out = append(out, e.newRoutine(def, kind, r.String("owner"), "", r.String("object_name")))
	}
	for _, r := range members {
		out = append(out, e.newRoutine(def, kind, r.String("owner"), r.String("package_name"), r.String("procedure_name")))
	}
	return out, nil
}

func (e *Engine) newRoutine(def string, kind schema.RoutineKind, owner, pkg, member string) *schema.RoutineSchema {
	resource, quoted := member, quoteIdentPart(owner)+"."
	if pkg != "" {
		resource = pkg + "." + member
		quoted += quoteIdentPart(pkg) + "."
	}
	return &schema.RoutineSchema{
		Kind:         kind,
		Schema:       owner,
		ResourceName: resource,
		Name:         qualify(def, owner, resource),
		InternalName: owner + "." + resource,
		QuotedName:   quoted + quoteIdentPart(member),
		Package:      pkg,
		Parameters:   []*schema.ParameterSchema{},
	}
}

// DescribeRoutine finds a routine by name and loads its parameters. name
// may be "NAME", "PKG.NAME", "SCHEMA.NAME" or "SCHEMA.PKG.NAME"; a
// two-part name is tried as a package member of the default schema first.
func (e *Engine) DescribeRoutine(ctx context.Context, kind schema.RoutineKind, name string) (*schema.RoutineSchema, error) {
	def, err := e.DefaultSchema(ctx)
	if err != nil {
		return nil, err
	}

	type candidate struct{ owner, resource string }
	var cands []candidate
	parts := strings.Split(strings.TrimSpace(name), ".")
	switch len(parts) {
	case 1:
		cands = []candidate{{def, parts[0]}}
	case 2:
		cands = []candidate{{def, parts[0] + "." + parts[1]}, {parts[0], parts[1]}}
	case 3:
		cands = []candidate{{parts[0], parts[1] + "." + parts[2]}}
	}
	if parts[0] == "" || len(cands) == 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "invalid routine name %q", name)
	}

	for _, c := range cands {
		owners := []string{c.owner}
		if up := strings.ToUpper(c.owner); up != c.owner {
			owners = append(owners, up)
		}
		for _, owner := range owners {
			list, err := e.ListRoutines(ctx, kind, owner)
			if err != nil {
				return nil, err
			}
			for _, r := range list {
				if strings.EqualFold(r.ResourceName, c.resource) {
					if err := e.LoadParameters(ctx, r); err != nil {
						return nil, errs.Context(err, fmt.Sprintf("describing routine %q", name))
					}
					return r, nil
				}
			}
		}
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "%s %q not found", strings.ToLower(string(kind)), name)
}

// LoadParameters fills r's parameters and return type from the argument
// catalog. Only the first overload of an overloaded routine is used.
func (e *Engine) LoadParameters(ctx context.Context, r *schema.RoutineSchema) error {
	args := []any{r.Schema, r.Member()}
	pkgCond := "package_name IS NULL"
	if r.Package != "" {
		pkgCond = "package_name = :3"
		args = append(args, r.Package)
	}
	recs, err := e.selectRecords(ctx, "parameters", fmt.Sprintf(parametersSQL, pkgCond), args...)
	if err != nil {
		return err
	}

	params := make([]*schema.ParameterSchema, 0, len(recs))
	overload, first := "", true
	for _, rec := range recs {
		if first {
			overload, first = rec.String("overload"), false
		} else if rec.String("overload") != overload {
			continue
		}

		p, isReturn := buildParameter(rec)
		if isReturn {
			if p.DbType != "" {
				r.ReturnType = p.Type
			}
			continue
		}
		params = append(params, p)
	}
	r.Parameters = params
	return nil
}

// buildParameter converts an argument row. isReturn is set for the
// position-0 / unnamed row that carries a function's return type.
func buildParameter(rec database.Record) (*schema.ParameterSchema, bool) {
	name, named := rec.NullString("argument_name")
	pos, _ := rec.Int("position")
	dbType := rec.String("data_type")
	precision, scale := rec.IntPtr("data_precision"), rec.IntPtr("data_scale")

	p := &schema.ParameterSchema{
		Name:      name,
		Position:  pos,
		ParamType: schema.NormalizeDirection(rec.String("in_out")),
		DbType:    dbType,
		Type:      extractType(dbType, precision, scale),
		Precision: precision,
		Scale:     scale,
	}
	if n, ok := rec.Int("char_length"); ok && n > 0 {
		p.Length = &n
	} else {
		p.Length = rec.IntPtr("data_length")
	}
	if raw, ok := rec.NullString("default_value"); ok {
		p.DefaultValue = schema.ParseDefault(p.Type, raw)
	}
	return p, pos == 0 || !named
}
