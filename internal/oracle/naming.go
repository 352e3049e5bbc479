package oracle

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/klauspost/crc32"
)

// MaxIdentifierLength is Oracle's identifier limit before 12.2.
const MaxIdentifierLength = 30

// maxSequenceBase leaves room for the _SEQ / _TRG suffix.
const maxSequenceBase = MaxIdentifierLength - 4

// checksum is the CRC-32/BZIP2 digest of s printed least significant byte
// first, the form existing long sequence and trigger names were created
// with. BZIP2 is the bit-mirror of the IEEE CRC over bit-reversed bytes.
func checksum(s string) string {
	in := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		in[i] = bits.Reverse8(s[i])
	}
	sum := bits.Reverse32(crc32.ChecksumIEEE(in))
	return fmt.Sprintf("%08x", bits.ReverseBytes32(sum))
}

// ConstraintName builds "<prefix>_<table>[_<column>]". Names over the
// identifier limit become "<prefix>_<crc32 of the rest>".
func ConstraintName(prefix, table, column string) string {
	rest := strings.ReplaceAll(table, ".", "_")
	if column != "" {
		rest += "_" + column
	}
	name := prefix + "_" + rest
	if len(name) > MaxIdentifierLength {
		name = prefix + "_" + checksum(rest)
	}
	return name
}

func sequenceBase(table string) string {
	base := strings.ReplaceAll(strings.ReplaceAll(table, `"`, ""), ".", "_")
	if len(base) > maxSequenceBase {
		base = checksum(base)
	}
	return strings.ToUpper(base)
}

// SequenceName is the name of the sequence emulating autoincrement for
// table, e.g. HR_EMPLOYEES_SEQ. The result never exceeds the identifier
// limit and is the same for the same input.
func SequenceName(table string) string { return sequenceBase(table) + "_SEQ" }

// TriggerName is the companion BEFORE INSERT trigger of SequenceName.
func TriggerName(table string) string { return sequenceBase(table) + "_TRG" }
