package oracle

import (
	"regexp"
	"strings"

	"github.com/koustreak/datri-oracle/internal/database"
)

// How an autoincrement column was recognised.
const (
	AutoIncrementIdentity = "identity"
	AutoIncrementDefault  = "default"
	AutoIncrementTrigger  = "trigger"
)

// AutoIncrement is the detector's verdict for one primary-key column.
// Sequence is empty for identity columns.
type AutoIncrement struct {
	Enabled  bool
	Sequence string
	Source   string
}

var sequenceRe = regexp.MustCompile(`(?:([A-Z0-9_$#]+)\.)?([A-Z0-9_$#]+)$`)

// DetectAutoIncrement tries, in order, the identity flag, a
// "<seq>.NEXTVAL" column default and the bodies of BEFORE INSERT
// triggers. rec is the column's catalog row; triggers is only called when
// the first two checks fail.
func DetectAutoIncrement(column string, rec database.Record, triggers func() ([]string, error)) (AutoIncrement, error) {
	if rec.Bool("identity_column") {
		return AutoIncrement{Enabled: true, Source: AutoIncrementIdentity}, nil
	}

	if seq, ok := sequenceFromDefault(rec.String("data_default")); ok {
		return AutoIncrement{Enabled: true, Sequence: seq, Source: AutoIncrementDefault}, nil
	}

	if triggers == nil {
		return AutoIncrement{}, nil
	}
	bodies, err := triggers()
	if err != nil {
		return AutoIncrement{}, err
	}
	if seq, ok := sequenceFromTriggers(column, bodies); ok {
		return AutoIncrement{Enabled: true, Sequence: seq, Source: AutoIncrementTrigger}, nil
	}
	return AutoIncrement{}, nil
}

// sequenceFromDefault matches defaults like "HR"."EMP_SEQ".NEXTVAL and
// returns the unqualified sequence name.
func sequenceFromDefault(def string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(def, `"`, "")))
	if !strings.HasSuffix(s, ".NEXTVAL") {
		return "", false
	}
	m := sequenceRe.FindStringSubmatch(strings.TrimSuffix(s, ".NEXTVAL"))
	if m == nil {
		return "", false
	}
	return m[2], true
}

// sequenceFromTriggers scans trigger bodies mentioning column for the
// identifier in front of ".NEXTVAL". Bodies without one are skipped.
func sequenceFromTriggers(column string, bodies []string) (string, bool) {
	col := strings.ToUpper(column)
	for _, body := range bodies {
		upper := strings.ToUpper(body)
		if !strings.Contains(upper, col) {
			continue
		}
		idx := strings.Index(upper, ".NEXTVAL")
		if idx < 0 {
			continue
		}
		tokens := strings.FieldsFunc(upper[:idx], func(r rune) bool {
			switch r {
			case ' ', '\t', '\n', '\r', '=', '(', ',', ':':
				return true
			}
			return false
		})
		if len(tokens) == 0 {
			continue
		}
		name := strings.ReplaceAll(tokens[len(tokens)-1], `"`, "")
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		if name != "" {
			return name, true
		}
	}
	return "", false
}
