package oracle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

// DefaultStringMaxSize is the VARCHAR2 length used when a string column
// request carries no length.
const DefaultStringMaxSize = 255

// Dialect is Oracle's implementation of both the query builder dialect and
// the column-spec pipeline.
type Dialect struct {
	// StringMaxSize overrides DefaultStringMaxSize when positive.
	StringMaxSize int
}

var (
	_ database.Dialect = (*Dialect)(nil)
	_ schema.Dialect   = (*Dialect)(nil)
)

// Placeholder returns Oracle's positional bind marker ":n".
func (d *Dialect) Placeholder(idx int) string { return ":" + strconv.Itoa(idx) }

// QuoteIdent wraps each dotted part in double quotes, doubling embedded
// quotes. "*" is left alone.
func (d *Dialect) QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func (d *Dialect) stringMaxSize() int {
	if d.StringMaxSize > 0 {
		return d.StringMaxSize
	}
	return DefaultStringMaxSize
}

// TranslateType maps a simple type onto the Oracle physical type. Types
// that are not simple types pass through unchanged.
func (d *Dialect) TranslateType(spec schema.ColumnSpec) schema.ColumnSpec {
	out := spec
	switch strings.ToLower(spec.Type) {
	case schema.TypeID, schema.TypePK:
		out.Type = "number"
		out.TypeExtras = "(10)"
		out.AllowNull = false
		out.AutoIncrement = false
		out.IsPrimaryKey = true

	case schema.TypeReference, schema.TypeFK:
		out.Type = "number"
		out.TypeExtras = "(10)"
		out.IsForeignKey = true

	case schema.TypeDatetime, schema.TypeTime, schema.TypeTimestamp:
		out.Type = "timestamp"

	case schema.TypeDatetimeTZ, schema.TypeTimeTZ, schema.TypeTimestampTZ:
		out.Type = "timestamp with time zone"

	case schema.TypeTimestampOnCreate, schema.TypeTimestampOnUpdate:
		out.Type = "timestamp"
		if out.Default == nil {
			out.Default = database.Raw("CURRENT_TIMESTAMP")
			out.QuoteDefault = false
		}

	case schema.TypeUserID, schema.TypeUserIDOnCreate, schema.TypeUserIDOnUpdate, schema.TypeInteger:
		out.Type = "number"
		out.TypeExtras = "(10)"

	case schema.TypeBigInt:
		out.Type = "number"
		out.TypeExtras = "(19)"

	case schema.TypeFloat:
		out.Type = "BINARY_FLOAT"

	case schema.TypeDouble:
		out.Type = "BINARY_DOUBLE"

	case schema.TypeDecimal:
		out.Type = "NUMBER"

	case schema.TypeBoolean:
		out.Type = "number"
		out.TypeExtras = "(1)"
		if out.Default != nil {
			if schema.Truthy(out.Default) {
				out.Default = 1
			} else {
				out.Default = 0
			}
		}

	case schema.TypeMoney:
		out.Type = "number"
		out.TypeExtras = "(19,4)"
		if f, ok := schema.ToFloat(out.Default); ok {
			out.Default = f
		}

	case schema.TypeString:
		switch {
		case spec.FixedLength && spec.SupportsMultibyte:
			out.Type = "nchar"
		case spec.FixedLength:
			out.Type = "char"
		case spec.SupportsMultibyte:
			out.Type = "nvarchar2"
		default:
			out.Type = "varchar2"
		}

	case schema.TypeText:
		if spec.SupportsMultibyte {
			out.Type = "nclob"
		} else {
			out.Type = "clob"
		}

	case schema.TypeBinary:
		if spec.FixedLength {
			out.Type = "blob"
		} else {
			out.Type = "varbinary"
		}
	}
	return out
}

// ValidateSettings fills in size extras and coerces numeric defaults.
func (d *Dialect) ValidateSettings(spec schema.ColumnSpec) schema.ColumnSpec {
	out := spec
	switch strings.ToLower(spec.Type) {
	case "number", "numeric", "decimal":
		if out.TypeExtras == "" {
			length := firstInt(spec.Length, spec.Precision)
			if length != nil {
				if spec.Scale != nil && *spec.Scale != 0 {
					out.TypeExtras = fmt.Sprintf("(%d,%d)", *length, *spec.Scale)
				} else {
					out.TypeExtras = fmt.Sprintf("(%d)", *length)
				}
			}
		}
		out.Default = coerceNumericDefault(out.Default)

	case "binary_float", "binary_double":
		out.Default = coerceNumericDefault(out.Default)

	case "char", "nchar":
		if length := firstInt(spec.Length, spec.Size); length != nil {
			out.TypeExtras = fmt.Sprintf("(%d)", *length)
		}

	case "varchar", "varchar2", "nvarchar", "nvarchar2":
		if length := firstInt(spec.Length, spec.Size); length != nil {
			out.TypeExtras = fmt.Sprintf("(%d)", *length)
		} else {
			out.TypeExtras = fmt.Sprintf("(%d)", d.stringMaxSize())
		}

	case "timestamp", "timestamp with time zone":
		if length := firstInt(spec.Length, spec.Size); length != nil {
			out.TypeExtras = fmt.Sprintf("(%d)", *length)
		}
	}
	return out
}

// BuildDefinition renders "<type><extras> [DEFAULT x] [PRIMARY KEY|UNIQUE]
// NULL|NOT NULL".
func (d *Dialect) BuildDefinition(spec schema.ColumnSpec) (string, error) {
	if spec.IsPrimaryKey && spec.IsUnique {
		return "", errs.Newf(errs.ErrKindInvalidInput,
			"column %q cannot be both primary key and unique", spec.Name)
	}

	var sb strings.Builder
	if strings.EqualFold(spec.Type, "timestamp with time zone") {
		sb.WriteString("timestamp" + spec.TypeExtras + " with time zone")
	} else {
		sb.WriteString(spec.Type + spec.TypeExtras)
	}

	if spec.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(renderDefault(spec.Default, spec.QuoteDefault))
	}

	switch {
	case spec.IsPrimaryKey:
		sb.WriteString(" PRIMARY KEY")
	case spec.IsUnique:
		sb.WriteString(" UNIQUE")
	}

	if spec.AllowNull {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	return sb.String(), nil
}

func firstInt(ptrs ...*int) *int {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}

func coerceNumericDefault(v any) any {
	switch v.(type) {
	case nil, database.Raw, bool:
		return v
	}
	if f, ok := schema.ToFloat(v); ok {
		return f
	}
	return v
}

func renderDefault(v any, quote bool) string {
	if raw, ok := v.(database.Raw); ok {
		return string(raw)
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		s = "0"
		if t {
			s = "1"
		}
	default:
		s = fmt.Sprint(t)
	}
	if quote {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return s
}
