package d0010

// record.go turns a single pipe-delimited line into a typed record.
//
// Record parsers are pure: they receive the split fields (and, for readings,
// the correlation State built up by earlier lines) and return a value or a
// FormatError/SequenceError. Line numbers are attached by the Parser.

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record type tags (first field of every line).
const (
	TagHeader     = "ZHV"
	TagMeterPoint = "026"
	TagMeter      = "028"
	TagReading    = "030"
	TagTrailer    = "ZPT"
)

const (
	// Delimiter separates fields within a line.
	Delimiter = "|"

	// DefaultMeterType is applied when a 028 record leaves the type blank.
	DefaultMeterType = "S"

	// ReadingTypeActual is the only reading type this importer produces.
	ReadingTypeActual = "ACTUAL"

	// DateTimeLayout is the 14-character reading timestamp format.
	DateTimeLayout = "20060102150405"

	mpanLength = 13
)

// Record is any parsed line. Lines with unknown tags produce no record.
type Record interface {
	Tag() string
}

// Header is the ZHV file header.
type Header struct {
	FileReference string
	FlowReference string
}

// MeterPointRecord is a 026 record. It opens a new MPAN group.
type MeterPointRecord struct {
	MPAN string
}

// MeterRecord is a 028 record within the current MPAN group.
type MeterRecord struct {
	SerialNumber string
	MeterType    string
}

// Reading is a 030 record resolved against its MPAN and meter context.
type Reading struct {
	MPAN        string
	MeterSerial string
	MeterType   string
	RegisterID  string
	ReadingDate time.Time
	Value       decimal.Decimal
	ReadingType string
}

// Trailer is the ZPT file trailer.
type Trailer struct {
	FileReference string
	RecordCount   int
}

func (Header) Tag() string           { return TagHeader }
func (MeterPointRecord) Tag() string { return TagMeterPoint }
func (MeterRecord) Tag() string      { return TagMeter }
func (Reading) Tag() string          { return TagReading }
func (Trailer) Tag() string          { return TagTrailer }

// ParseHeader extracts the file and flow references. Missing fields are empty.
func ParseHeader(fields []string) Header {
	return Header{
		FileReference: field(fields, 1),
		FlowReference: field(fields, 2),
	}
}

// ParseMeterPoint validates the MPAN in field 2: exactly 13 digits.
func ParseMeterPoint(fields []string) (MeterPointRecord, error) {
	if len(fields) < 2 {
		return MeterPointRecord{}, fieldCountError(TagMeterPoint, 2, fields)
	}

	mpan := strings.TrimSpace(fields[1])
	if len(mpan) != mpanLength || !isDigits(mpan) {
		return MeterPointRecord{}, &FormatError{
			Field:  "MPAN",
			Value:  mpan,
			Reason: "must be exactly 13 digits",
		}
	}

	return MeterPointRecord{MPAN: mpan}, nil
}

// ParseMeter extracts the meter serial (required) and type (default "S").
func ParseMeter(fields []string) (MeterRecord, error) {
	if len(fields) < 3 {
		return MeterRecord{}, fieldCountError(TagMeter, 3, fields)
	}

	serial := strings.TrimSpace(fields[1])
	if serial == "" {
		return MeterRecord{}, &FormatError{Field: "meter serial", Value: fields[1], Reason: "must not be empty"}
	}

	meterType := strings.TrimSpace(fields[2])
	if meterType == "" {
		meterType = DefaultMeterType
	}

	return MeterRecord{SerialNumber: serial, MeterType: meterType}, nil
}

// ParseReading builds a Reading from a 030 record. The state must carry both
// an MPAN and a meter serial; the timestamp is resolved in loc.
func ParseReading(fields []string, st State, loc *time.Location) (Reading, error) {
	if st.MPAN == "" || st.MeterSerial == "" {
		return Reading{}, &SequenceError{Reason: "reading without preceding MPAN/meter context"}
	}
	if len(fields) < 4 {
		return Reading{}, fieldCountError(TagReading, 4, fields)
	}

	registerID := strings.TrimSpace(fields[1])

	readingDate, err := ParseReadingDate(strings.TrimSpace(fields[2]), loc)
	if err != nil {
		return Reading{}, err
	}

	raw := strings.TrimSpace(fields[3])
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return Reading{}, &FormatError{Field: "reading value", Value: raw, Reason: "not a decimal number"}
	}

	return Reading{
		MPAN:        st.MPAN,
		MeterSerial: st.MeterSerial,
		MeterType:   st.MeterType,
		RegisterID:  registerID,
		ReadingDate: readingDate,
		Value:       value,
		ReadingType: ReadingTypeActual,
	}, nil
}

// ParseReadingDate parses a YYYYMMDDHHMMSS wall-clock time in loc.
func ParseReadingDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) != len(DateTimeLayout) {
		return time.Time{}, &FormatError{
			Field:  "reading date",
			Value:  s,
			Reason: "expected 14 characters (YYYYMMDDHHMMSS)",
		}
	}

	wall, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, &FormatError{Field: "reading date", Value: s, Reason: "not a valid date-time"}
	}

	return ResolveWallClock(wall, loc), nil
}

// ParseTrailer extracts the file reference and record count. A missing or
// non-numeric count is 0.
func ParseTrailer(fields []string) Trailer {
	t := Trailer{FileReference: field(fields, 1)}

	if raw := field(fields, 2); raw != "" && isDigits(raw) {
		if n, err := strconv.Atoi(raw); err == nil {
			t.RecordCount = n
		}
	}

	return t
}

// FormatValue renders a reading value keeping its original scale, so
// "12345.000" stays "12345.000" rather than collapsing to "12345".
func FormatValue(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func joinFields(fields []string) string {
	return strings.Join(fields, Delimiter)
}
