package oracle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datri-oracle/internal/database"
)

func TestDetectAutoIncrement(t *testing.T) {
	noTriggers := func() ([]string, error) {
		return nil, errors.New("trigger scan must not run")
	}

	t.Run("identity column", func(t *testing.T) {
		ai, err := DetectAutoIncrement("ID", database.Record{"identity_column": "YES"}, noTriggers)
		require.NoError(t, err)
		assert.Equal(t, AutoIncrement{Enabled: true, Source: AutoIncrementIdentity}, ai)
	})

	t.Run("sequence default", func(t *testing.T) {
		ai, err := DetectAutoIncrement("ID", database.Record{"data_default": `"MYSEQ".NEXTVAL`}, noTriggers)
		require.NoError(t, err)
		assert.Equal(t, AutoIncrement{Enabled: true, Sequence: "MYSEQ", Source: AutoIncrementDefault}, ai)
	})

	t.Run("qualified sequence default", func(t *testing.T) {
		ai, err := DetectAutoIncrement("ID", database.Record{"data_default": ` "hr"."emp_seq".nextval `}, noTriggers)
		require.NoError(t, err)
		assert.Equal(t, "EMP_SEQ", ai.Sequence)
	})

	t.Run("falls through to triggers", func(t *testing.T) {
		called := 0
		ai, err := DetectAutoIncrement("ID", database.Record{"data_default": "0", "identity_column": "NO"},
			func() ([]string, error) {
				called++
				return []string{
					"BEGIN :new.id_hash := ORA_HASH(:new.name); END;",
					"BEGIN\n  SELECT other_seq.nextval INTO :new.code FROM dual;\nEND;",
					"BEGIN\n  SELECT emp_seq.nextval INTO :new.id FROM dual;\nEND;",
				}, nil
			})
		require.NoError(t, err)
		assert.Equal(t, 1, called)
		assert.True(t, ai.Enabled)
		assert.Equal(t, AutoIncrementTrigger, ai.Source)
		assert.Equal(t, "EMP_SEQ", ai.Sequence)
	})

	t.Run("assignment form", func(t *testing.T) {
		ai, err := DetectAutoIncrement("id", database.Record{}, func() ([]string, error) {
			return []string{`BEGIN :new."ID" := "HR"."T_SEQ".NEXTVAL; END;`}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "T_SEQ", ai.Sequence)
	})

	t.Run("nothing matches", func(t *testing.T) {
		ai, err := DetectAutoIncrement("ID", database.Record{}, func() ([]string, error) { return nil, nil })
		require.NoError(t, err)
		assert.False(t, ai.Enabled)
	})

	t.Run("trigger query error", func(t *testing.T) {
		_, err := DetectAutoIncrement("ID", database.Record{}, func() ([]string, error) {
			return nil, errors.New("boom")
		})
		assert.Error(t, err)
	})
}
