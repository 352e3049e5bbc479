package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// Simple (abstract) types shared by every SQL dialect.
const (
	TypeID                = "id"
	TypeReference         = "reference"
	TypeUserID            = "user_id"
	TypeUserIDOnCreate    = "user_id_on_create"
	TypeUserIDOnUpdate    = "user_id_on_update"
	TypeTimestampOnCreate = "timestamp_on_create"
	TypeTimestampOnUpdate = "timestamp_on_update"

	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeBigInt  = "bigint"
	TypeFloat   = "float"
	TypeDouble  = "double"
	TypeDecimal = "decimal"
	TypeMoney   = "money"

	TypeString = "string"
	TypeText   = "text"
	TypeBinary = "binary"

	TypeDate        = "date"
	TypeTime        = "time"
	TypeTimeTZ      = "time_tz"
	TypeDatetime    = "datetime"
	TypeDatetimeTZ  = "datetime_tz"
	TypeTimestamp   = "timestamp"
	TypeTimestampTZ = "timestamp_tz"

	TypeTable     = "table"
	TypeArray     = "array"
	TypeRefCursor = "ref_cursor"
	TypeRow       = "row"

	// Shorthands accepted on input for TypeID and TypeReference.
	TypePK = "pk"
	TypeFK = "fk"
)

// ExtractSimpleType maps a native type name to a simple type. size and
// scale are the catalog's raw precision/scale, nil when NULL.
func ExtractSimpleType(dbType string, size, scale *int) string {
	t := strings.ToLower(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		// keep suffixes such as "with time zone" after the parens
		if j := strings.IndexByte(t[i:], ')'); j >= 0 {
			t = strings.TrimSpace(t[:i] + t[i+j+1:])
		}
	}

	switch {
	case t == "table" || strings.HasSuffix(t, " table"):
		return TypeTable
	case t == "array" || t == "varying array" || t == "varray":
		return TypeArray
	case t == "ref cursor":
		return TypeRefCursor
	case t == "bit" || strings.Contains(t, "bool"):
		return TypeBoolean
	case t == "number":
		switch {
		case size != nil && *size == 1 && (scale == nil || *scale == 0):
			return TypeBoolean
		case scale != nil && *scale == 0:
			return TypeInteger
		default:
			return TypeDecimal
		}
	case t == "decimal" || t == "numeric" || t == "dec":
		return TypeDecimal
	case strings.Contains(t, "money"):
		return TypeMoney
	case strings.Contains(t, "double"):
		return TypeDouble
	case t == "real" || strings.Contains(t, "float"):
		return TypeFloat
	case t == "tinyint" || t == "smallint" || t == "mediumint" || t == "int" || t == "integer" ||
		t == "binary_integer" || t == "pls_integer" || t == "natural" || t == "positive":
		return TypeInteger
	case t == "bigint":
		return TypeBigInt
	case strings.HasPrefix(t, "timestamp"):
		if strings.Contains(t, "time zone") {
			return TypeTimestampTZ
		}
		return TypeTimestamp
	case t == "datetime":
		return TypeDatetime
	case t == "date":
		return TypeDate
	case strings.HasPrefix(t, "time"):
		if strings.Contains(t, "time zone") {
			return TypeTimeTZ
		}
		return TypeTime
	case strings.HasPrefix(t, "interval"):
		return TypeString
	case strings.Contains(t, "clob") || strings.Contains(t, "text") || t == "long":
		return TypeText
	case strings.Contains(t, "blob") || strings.Contains(t, "raw") || strings.Contains(t, "binary") ||
		t == "bfile":
		return TypeBinary
	default:
		return TypeString
	}
}

// ExtractFixedLength reports whether a native character or binary type is
// fixed width.
func ExtractFixedLength(dbType string) bool {
	t := strings.ToLower(strings.TrimSpace(dbType))
	switch {
	case strings.HasPrefix(t, "char"), strings.HasPrefix(t, "nchar"),
		strings.HasPrefix(t, "binary") && !strings.HasPrefix(t, "binary_"):
		return true
	}
	return false
}

// ExtractMultiByteSupport reports whether a native type stores national
// (multibyte) characters.
func ExtractMultiByteSupport(dbType string) bool {
	t := strings.ToLower(strings.TrimSpace(dbType))
	switch {
	case strings.HasPrefix(t, "nchar"), strings.HasPrefix(t, "nvarchar"),
		strings.HasPrefix(t, "nclob"), strings.HasPrefix(t, "national"):
		return true
	}
	return false
}

var limitRe = regexp.MustCompile(`\(\s*(\d+)\s*(?:,\s*(-?\d+)\s*)?\)`)

// ExtractLimit copies an inline "(size)" or "(precision,scale)" from the
// native type onto c, overriding catalog values.
func ExtractLimit(c *ColumnSchema, dbType string) {
	m := limitRe.FindStringSubmatch(dbType)
	if m == nil {
		return
	}
	first, _ := strconv.Atoi(m[1])
	if m[2] == "" {
		c.Size = &first
		return
	}
	scale, _ := strconv.Atoi(m[2])
	c.Precision = &first
	c.Scale = &scale
	c.Size = nil
}

// Truthy parses the usual spellings of a boolean flag: true/1/on/yes.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "on", "yes":
			return true
		}
	}
	return false
}

// ToFloat converts a numeric-looking value. ok is false otherwise.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// ParseDefault converts a catalog default expression into a typed value.
// Quoted literals are unquoted, NULL becomes nil and expressions that do
// not parse for a numeric or boolean type are dropped.
func ParseDefault(simpleType, raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "NULL") {
		return nil
	}
	quoted := len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
	if quoted {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}

	switch simpleType {
	case TypeBoolean:
		if n, err := strconv.Atoi(s); err == nil {
			return n != 0
		}
		switch strings.ToLower(s) {
		case "true", "yes", "y":
			return true
		case "false", "no", "n":
			return false
		}
		return nil
	case TypeInteger, TypeBigInt, TypeID, TypeReference, TypeUserID, TypeUserIDOnCreate, TypeUserIDOnUpdate:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return nil
	case TypeFloat, TypeDouble, TypeDecimal, TypeMoney:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return nil
	}
	return s
}
