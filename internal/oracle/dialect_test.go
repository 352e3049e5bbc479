package oracle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

func TestTranslateType_StringMatrix(t *testing.T) {
	d := &Dialect{}
	tests := []struct {
		fixed, multibyte bool
		want             string
	}{
		{false, false, "varchar2"},
		{false, true, "nvarchar2"},
		{true, false, "char"},
		{true, true, "nchar"},
	}
	for _, tt := range tests {
		got := d.TranslateType(schema.ColumnSpec{Type: "string", FixedLength: tt.fixed, SupportsMultibyte: tt.multibyte})
		assert.Equal(t, tt.want, got.Type, "fixed=%v multibyte=%v", tt.fixed, tt.multibyte)
	}
}

func TestTranslateType(t *testing.T) {
	d := &Dialect{}
	tests := []struct {
		name      string
		in        schema.ColumnSpec
		wantType  string
		wantExtra string
		check     func(t *testing.T, out schema.ColumnSpec)
	}{
		{
			name: "id", in: schema.ColumnSpec{Type: "id", AllowNull: true, AutoIncrement: true},
			wantType: "number", wantExtra: "(10)",
			check: func(t *testing.T, out schema.ColumnSpec) {
				assert.True(t, out.IsPrimaryKey)
				assert.False(t, out.AllowNull)
				assert.False(t, out.AutoIncrement)
			},
		},
		{
			name: "fk shorthand", in: schema.ColumnSpec{Type: "FK"},
			wantType: "number", wantExtra: "(10)",
			check: func(t *testing.T, out schema.ColumnSpec) { assert.True(t, out.IsForeignKey) },
		},
		{name: "integer", in: schema.ColumnSpec{Type: "integer"}, wantType: "number", wantExtra: "(10)"},
		{name: "user id", in: schema.ColumnSpec{Type: "user_id_on_create"}, wantType: "number", wantExtra: "(10)"},
		{name: "float", in: schema.ColumnSpec{Type: "float"}, wantType: "BINARY_FLOAT"},
		{name: "double", in: schema.ColumnSpec{Type: "double"}, wantType: "BINARY_DOUBLE"},
		{name: "decimal", in: schema.ColumnSpec{Type: "decimal"}, wantType: "NUMBER"},
		{
			name: "boolean default", in: schema.ColumnSpec{Type: "boolean", Default: "yes"},
			wantType: "number", wantExtra: "(1)",
			check: func(t *testing.T, out schema.ColumnSpec) { assert.Equal(t, 1, out.Default) },
		},
		{
			name: "money default", in: schema.ColumnSpec{Type: "money", Default: "12.5"},
			wantType: "number", wantExtra: "(19,4)",
			check: func(t *testing.T, out schema.ColumnSpec) { assert.Equal(t, 12.5, out.Default) },
		},
		{name: "text", in: schema.ColumnSpec{Type: "text"}, wantType: "clob"},
		{name: "ntext", in: schema.ColumnSpec{Type: "text", SupportsMultibyte: true}, wantType: "nclob"},
		{name: "fixed binary", in: schema.ColumnSpec{Type: "binary", FixedLength: true}, wantType: "blob"},
		{name: "binary", in: schema.ColumnSpec{Type: "binary"}, wantType: "varbinary"},
		{name: "datetime", in: schema.ColumnSpec{Type: "datetime"}, wantType: "timestamp"},
		{name: "timestamp tz", in: schema.ColumnSpec{Type: "timestamp_tz"}, wantType: "timestamp with time zone"},
		{
			name: "timestamp on create", in: schema.ColumnSpec{Type: "timestamp_on_create"},
			wantType: "timestamp",
			check: func(t *testing.T, out schema.ColumnSpec) {
				assert.Equal(t, database.Raw("CURRENT_TIMESTAMP"), out.Default)
			},
		},
		{name: "native passes through", in: schema.ColumnSpec{Type: "RAW"}, wantType: "RAW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := d.TranslateType(tt.in)
			assert.Equal(t, tt.wantType, out.Type)
			assert.Equal(t, tt.wantExtra, out.TypeExtras)
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}

func TestValidateSettings(t *testing.T) {
	d := &Dialect{}
	tests := []struct {
		name string
		in   schema.ColumnSpec
		want string
	}{
		{"number precision scale", schema.ColumnSpec{Type: "number", Precision: schema.Int(8), Scale: schema.Int(2)}, "(8,2)"},
		{"number length", schema.ColumnSpec{Type: "NUMBER", Length: schema.Int(5)}, "(5)"},
		{"number zero scale", schema.ColumnSpec{Type: "number", Precision: schema.Int(5), Scale: schema.Int(0)}, "(5)"},
		{"number keeps extras", schema.ColumnSpec{Type: "number", TypeExtras: "(10)", Length: schema.Int(3)}, "(10)"},
		{"char size", schema.ColumnSpec{Type: "char", Size: schema.Int(2)}, "(2)"},
		{"varchar default size", schema.ColumnSpec{Type: "varchar2"}, "(255)"},
		{"nvarchar length", schema.ColumnSpec{Type: "nvarchar2", Length: schema.Int(40)}, "(40)"},
		{"timestamp fraction", schema.ColumnSpec{Type: "timestamp", Length: schema.Int(3)}, "(3)"},
		{"binary float untouched", schema.ColumnSpec{Type: "BINARY_FLOAT", Length: schema.Int(3)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.ValidateSettings(tt.in).TypeExtras)
		})
	}

	t.Run("configured string size", func(t *testing.T) {
		out := (&Dialect{StringMaxSize: 4000}).ValidateSettings(schema.ColumnSpec{Type: "varchar2"})
		assert.Equal(t, "(4000)", out.TypeExtras)
	})

	t.Run("numeric default coerced to float", func(t *testing.T) {
		out := d.ValidateSettings(schema.ColumnSpec{Type: "BINARY_DOUBLE", Default: "3"})
		assert.Equal(t, 3.0, out.Default)
	})
}

func TestBuildDefinition(t *testing.T) {
	d := &Dialect{}

	t.Run("primary key and unique rejected", func(t *testing.T) {
		_, err := d.BuildDefinition(schema.ColumnSpec{Name: "ID", Type: "number", IsPrimaryKey: true, IsUnique: true})
		require.Error(t, err)
		assert.True(t, errs.IsInvalidInput(err))
	})

	tests := []struct {
		name string
		in   schema.ColumnSpec
		want string
	}{
		{"id", schema.ColumnSpec{Name: "ID", Type: "id"}, "number(10) PRIMARY KEY NOT NULL"},
		{"nullable string", schema.ColumnSpec{Name: "N", Type: "string", AllowNull: true}, "varchar2(255) NULL"},
		{"quoted default", schema.ColumnSpec{Name: "S", Type: "string", Default: "it's", QuoteDefault: true, Length: schema.Int(10)},
			"varchar2(10) DEFAULT 'it''s' NOT NULL"},
		{"unique", schema.ColumnSpec{Name: "U", Type: "integer", IsUnique: true}, "number(10) UNIQUE NOT NULL"},
		{"boolean default", schema.ColumnSpec{Name: "B", Type: "boolean", Default: true}, "number(1) DEFAULT 1 NOT NULL"},
		{"timestamp tz with fraction", schema.ColumnSpec{Name: "T", Type: "timestamp_tz", Length: schema.Int(6), AllowNull: true},
			"timestamp(6) with time zone NULL"},
		{"on create", schema.ColumnSpec{Name: "C", Type: "timestamp_on_create"}, "timestamp DEFAULT CURRENT_TIMESTAMP NOT NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, def, err := schema.ColumnDefinition(d, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, def)
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	d := &Dialect{}
	assert.Equal(t, `"HR"."EMP"`, d.QuoteIdent("HR.EMP"))
	assert.Equal(t, `"a""b"`, d.QuoteIdent(`a"b`))
	assert.Equal(t, `"t1".*`, d.QuoteIdent("t1.*"))
	assert.Equal(t, ":3", d.Placeholder(3))
}

func ptr(n int) *int { return &n }

func TestPaginate(t *testing.T) {
	d := &Dialect{}
	const q = `SELECT * FROM "EMP"`

	t.Run("no limit", func(t *testing.T) {
		assert.Equal(t, q, d.Paginate(q, nil, nil))
	})

	t.Run("first row", func(t *testing.T) {
		got := d.Paginate(q, ptr(1), nil)
		assert.Equal(t, `SELECT * FROM (SELECT * FROM "EMP") WHERE ROWNUM = 1`, got)
	})

	t.Run("limit and offset", func(t *testing.T) {
		got := d.Paginate(q, ptr(20), ptr(40))
		assert.Equal(t,
			`SELECT t2.* FROM (SELECT ROWNUM AS "rn", t1.* FROM (SELECT * FROM "EMP") t1 WHERE ROWNUM < 61) t2 WHERE t2."rn" >= 41`,
			got)
	})

	t.Run("limit only", func(t *testing.T) {
		got := d.Paginate(q, ptr(10), nil)
		assert.Equal(t,
			`SELECT ROWNUM AS "rn", t1.* FROM (SELECT * FROM "EMP") t1 WHERE ROWNUM <= 10`,
			got)
	})

	t.Run("non-positive limit falls back to the offset filter", func(t *testing.T) {
		got := d.Paginate(q, ptr(0), nil)
		assert.True(t, strings.HasSuffix(got, `WHERE t2."rn" >= 1`), got)
	})

	t.Run("offset only", func(t *testing.T) {
		got := d.Paginate(q, nil, ptr(5))
		assert.True(t, strings.HasSuffix(got, `WHERE t2."rn" >= 6`), got)
	})

	t.Run("via builder", func(t *testing.T) {
		sql, args, err := database.Select("HR.EMP", d).Columns("ID").Where("DEPT", "=", 7).Limit(1).Build()
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM (SELECT "ID" FROM "HR"."EMP" WHERE "DEPT" = :1) WHERE ROWNUM = 1`, sql)
		assert.Equal(t, []any{7}, args)
	})
}
