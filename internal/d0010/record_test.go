package d0010

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func split(line string) []string {
	return strings.Split(line, Delimiter)
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Header
	}{
		{"full header", "ZHV|0000123456|D0010002|D|UDMS", Header{FileReference: "0000123456", FlowReference: "D0010002"}},
		{"no flow reference", "ZHV|REF1", Header{FileReference: "REF1"}},
		{"tag only", "ZHV", Header{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHeader(split(tt.line)))
		})
	}
}

func TestParseMeterPoint(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    string
		wantBad string // Value the FormatError must name
	}{
		{name: "valid", line: "026|1234567890123|V", want: "1234567890123"},
		{name: "surrounding spaces trimmed", line: "026| 1234567890123 |V", want: "1234567890123"},
		{name: "twelve digits", line: "026|123456789012", wantBad: "123456789012"},
		{name: "fourteen digits", line: "026|12345678901234", wantBad: "12345678901234"},
		{name: "contains letter", line: "026|12345678901A3", wantBad: "12345678901A3"},
		{name: "empty", line: "026||V", wantBad: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseMeterPoint(split(tt.line))
			if tt.want != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, rec.MPAN)
				return
			}

			var fe *FormatError
			require.True(t, errors.As(err, &fe), "want FormatError, got %v", err)
			assert.Equal(t, "MPAN", fe.Field)
			assert.Equal(t, tt.wantBad, fe.Value)
			assert.Contains(t, err.Error(), tt.wantBad)
		})
	}
}

func TestParseMeterPoint_MissingField(t *testing.T) {
	_, err := ParseMeterPoint([]string{"026"})

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "at least 2 fields")
}

func TestParseMeter(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		want     MeterRecord
		wantFail bool
	}{
		{name: "serial and type", line: "028|M001|S", want: MeterRecord{SerialNumber: "M001", MeterType: "S"}},
		{name: "other type kept", line: "028|M002|H| | |", want: MeterRecord{SerialNumber: "M002", MeterType: "H"}},
		{name: "blank type defaults", line: "028|M003| |", want: MeterRecord{SerialNumber: "M003", MeterType: "S"}},
		{name: "empty serial", line: "028| |S", wantFail: true},
		{name: "too few fields", line: "028|M001", wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseMeter(split(tt.line))
			if tt.wantFail {
				var fe *FormatError
				require.ErrorAs(t, err, &fe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec)
		})
	}
}

func TestParseReading(t *testing.T) {
	st := State{MPAN: "1234567890123", MeterSerial: "M001", MeterType: "S"}

	rec, err := ParseReading(split("030|01|20231201100000|12345.000|||T|N"), st, UKLocation())
	require.NoError(t, err)

	assert.Equal(t, "1234567890123", rec.MPAN)
	assert.Equal(t, "M001", rec.MeterSerial)
	assert.Equal(t, "S", rec.MeterType)
	assert.Equal(t, "01", rec.RegisterID)
	assert.Equal(t, ReadingTypeActual, rec.ReadingType)
	assert.Equal(t, "12345.000", FormatValue(rec.Value))
	assert.True(t, rec.ReadingDate.Equal(time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC)),
		"December is GMT, got %v", rec.ReadingDate)
	assert.Equal(t, UKLocation(), rec.ReadingDate.Location())
}

func TestParseReading_SummerTime(t *testing.T) {
	st := State{MPAN: "1234567890123", MeterSerial: "M001", MeterType: "S"}

	rec, err := ParseReading(split("030|1|20230701120000|1"), st, UKLocation())
	require.NoError(t, err)

	assert.True(t, rec.ReadingDate.Equal(time.Date(2023, 7, 1, 11, 0, 0, 0, time.UTC)),
		"July is BST (UTC+1), got %v", rec.ReadingDate.UTC())
}

func TestParseReading_Errors(t *testing.T) {
	full := State{MPAN: "1234567890123", MeterSerial: "M001", MeterType: "S"}

	tests := []struct {
		name      string
		line      string
		state     State
		wantSeq   bool
		wantField string
	}{
		{name: "no MPAN", line: "030|1|20231201100000|1", state: State{}, wantSeq: true},
		{name: "short line without MPAN", line: "030|1", state: State{}, wantSeq: true},
		{name: "MPAN without meter", line: "030|1|20231201100000|1", state: State{MPAN: "1234567890123"}, wantSeq: true},
		{name: "short date", line: "030|1|202312011000|1", state: full, wantField: "reading date"},
		{name: "long date", line: "030|1|2023120110000000|1", state: full, wantField: "reading date"},
		{name: "impossible date", line: "030|1|20231341100000|1", state: full, wantField: "reading date"},
		{name: "non-numeric value", line: "030|1|20231201100000|abc", state: full, wantField: "reading value"},
		{name: "empty value", line: "030|1|20231201100000|", state: full, wantField: "reading value"},
		{name: "too few fields", line: "030|1|20231201100000", state: full, wantField: "030 record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReading(split(tt.line), tt.state, UKLocation())
			require.Error(t, err)

			if tt.wantSeq {
				var se *SequenceError
				require.ErrorAs(t, err, &se)
				assert.Contains(t, err.Error(), "reading without preceding MPAN/meter context")
				return
			}

			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantField, fe.Field)
		})
	}
}

func TestParseTrailer(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Trailer
	}{
		{"count present", "ZPT|REF1|7", Trailer{FileReference: "REF1", RecordCount: 7}},
		{"count missing", "ZPT|REF1", Trailer{FileReference: "REF1"}},
		{"count non-numeric", "ZPT|REF1|seven", Trailer{FileReference: "REF1"}},
		{"count negative", "ZPT|REF1|-3", Trailer{FileReference: "REF1"}},
		{"tag only", "ZPT", Trailer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTrailer(split(tt.line)))
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12345.000", "12345.000"},
		{"12345", "12345"},
		{"0.10", "0.10"},
		{"-7.5", "-7.5"},
		{"00042.1", "42.1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			st := State{MPAN: "1234567890123", MeterSerial: "M1", MeterType: "S"}
			rec, err := ParseReading(split("030|1|20231201100000|"+tt.input), st, UKLocation())
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatValue(rec.Value))
		})
	}

	t.Run("trailing zeros distinguish values", func(t *testing.T) {
		st := State{MPAN: "1234567890123", MeterSerial: "M1", MeterType: "S"}
		a, err := ParseReading(split("030|1|20231201100000|12345.000"), st, UKLocation())
		require.NoError(t, err)
		b, err := ParseReading(split("030|1|20231201100000|12345"), st, UKLocation())
		require.NoError(t, err)

		assert.True(t, a.Value.Equal(b.Value), "numerically equal")
		assert.NotEqual(t, FormatValue(a.Value), FormatValue(b.Value))
	})
}
