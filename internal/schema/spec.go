package schema

// ColumnSpec is an abstract column request. It is passed by value through
// the translate → validate → build pipeline; every stage returns a new
// value and never touches its input.
type ColumnSpec struct {
	Name string
	// Type is a simple type on input and a native type after translation.
	Type       string
	TypeExtras string

	Length    *int
	Size      *int
	Precision *int
	Scale     *int

	FixedLength       bool
	SupportsMultibyte bool

	AllowNull     bool
	AutoIncrement bool
	IsPrimaryKey  bool
	IsForeignKey  bool
	IsUnique      bool

	Default      any
	QuoteDefault bool

	RefTable    string
	RefField    string
	RefOnDelete string
}

// Dialect is the capability set a SQL engine supplies to the shared schema
// machinery.
type Dialect interface {
	// QuoteIdent quotes a possibly dotted identifier.
	QuoteIdent(name string) string

	// TranslateType maps an abstract type onto a native type and its
	// mandatory properties.
	TranslateType(spec ColumnSpec) ColumnSpec

	// ValidateSettings fills in TypeExtras and coerces defaults.
	ValidateSettings(spec ColumnSpec) ColumnSpec

	// BuildDefinition renders the column definition that follows the
	// column name in CREATE/ALTER statements.
	BuildDefinition(spec ColumnSpec) (string, error)
}

// ColumnDefinition runs spec through d's pipeline and returns the final
// spec together with its rendered definition.
func ColumnDefinition(d Dialect, spec ColumnSpec) (ColumnSpec, string, error) {
	spec = d.ValidateSettings(d.TranslateType(spec))
	def, err := d.BuildDefinition(spec)
	if err != nil {
		return spec, "", err
	}
	return spec, def, nil
}

// Int returns a pointer to n, for filling the optional size fields.
func Int(n int) *int { return &n }
