package oracle

import (
	"time"

	"github.com/koustreak/datri-oracle/internal/schema"
)

// Go layouts of Oracle's default NLS date and timestamp formats.
const (
	dateLayout      = "02-Jan-06"
	timeLayout      = "15:04:05.000000"
	timestampLayout = "02-Jan-06 03.04.05.000000 PM"
	timeZoneSuffix  = " -07:00"
)

// NativeDateTimeFormat returns the layout Oracle uses to render values of
// a temporal simple type. ok is false for other types.
func NativeDateTimeFormat(simpleType string) (layout string, ok bool) {
	switch simpleType {
	case schema.TypeDate:
		return dateLayout, true
	case schema.TypeTime:
		return timeLayout, true
	case schema.TypeTimeTZ:
		return timeLayout + timeZoneSuffix, true
	case schema.TypeDatetime, schema.TypeTimestamp, schema.TypeTimestampOnCreate, schema.TypeTimestampOnUpdate:
		return timestampLayout, true
	case schema.TypeDatetimeTZ, schema.TypeTimestampTZ:
		return timestampLayout + timeZoneSuffix, true
	}
	return "", false
}

// FormatNative renders t in the native format of simpleType, falling back
// to RFC 3339 for non-temporal types.
func FormatNative(t time.Time, simpleType string) string {
	layout, ok := NativeDateTimeFormat(simpleType)
	if !ok {
		layout = time.RFC3339
	}
	return t.Format(layout)
}

// ParseNative parses s in the native format of simpleType.
func ParseNative(s, simpleType string) (time.Time, error) {
	layout, ok := NativeDateTimeFormat(simpleType)
	if !ok {
		layout = time.RFC3339
	}
	return time.Parse(layout, s)
}
