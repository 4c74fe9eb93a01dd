package d0010

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `ZHV|0000123456|D0010002|D|UDMS|X|MRCY|20231201120000||||OPER| | |
026|1234567890123|V| | |
028|M00123456|S| | |
030|01|20231201100000|12345.000|||T|N| | |
ZPT|00002|
`

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestParse_SampleFile(t *testing.T) {
	file, err := NewParser().ParseString(sampleFile)
	require.NoError(t, err)

	require.NotNil(t, file.Header)
	assert.Equal(t, "0000123456", file.Header.FileReference)
	assert.Equal(t, "D0010002", file.Header.FlowReference)
	assert.Equal(t, "0000123456", file.FileReference())

	require.NotNil(t, file.Trailer)
	assert.Equal(t, "00002", file.Trailer.FileReference)
	assert.Equal(t, 0, file.Trailer.RecordCount, "empty count field")

	require.Len(t, file.Readings, 1)
	r := file.Readings[0]
	assert.Equal(t, "1234567890123", r.MPAN)
	assert.Equal(t, "M00123456", r.MeterSerial)
	assert.Equal(t, "01", r.RegisterID)
	assert.Equal(t, "12345.000", FormatValue(r.Value))
}

func TestParse_EndToEndExample(t *testing.T) {
	file, err := NewParser().ParseString(lines(
		"ZHV|REF1|FLOW1",
		"026|1234567890123",
		"028|M001|S",
		"030|1|20231201100000|12345.000",
		"ZPT|REF1|1",
	))
	require.NoError(t, err)

	require.Len(t, file.Readings, 1)
	assert.Equal(t, "REF1", file.FileReference())
	assert.Equal(t, 1, file.Trailer.RecordCount)
	assert.Equal(t, Reading{
		MPAN:        "1234567890123",
		MeterSerial: "M001",
		MeterType:   "S",
		RegisterID:  "1",
		ReadingDate: file.Readings[0].ReadingDate,
		Value:       file.Readings[0].Value,
		ReadingType: "ACTUAL",
	}, file.Readings[0])
}

func TestParse_StateTracking(t *testing.T) {
	file, err := NewParser().ParseString(lines(
		"ZHV|REF|FLOW",
		"026|1111111111111",
		"028|A1|S",
		"030|1|20231201100000|1.0",
		"030|2|20231201100000|2.0",
		"028|A2|H",
		"030|1|20231201100000|3.0",
		"026|2222222222222",
		"028|B1|",
		"030|1|20231202100000|4.0",
		"030|1|20231202100000|4.0",
		"ZPT|REF|9",
	))
	require.NoError(t, err)
	require.Len(t, file.Readings, 5)

	want := []struct{ mpan, serial, typ, reg, value string }{
		{"1111111111111", "A1", "S", "1", "1.0"},
		{"1111111111111", "A1", "S", "2", "2.0"},
		{"1111111111111", "A2", "H", "1", "3.0"},
		{"2222222222222", "B1", "S", "1", "4.0"},
		{"2222222222222", "B1", "S", "1", "4.0"}, // duplicates survive parsing
	}
	for i, w := range want {
		r := file.Readings[i]
		assert.Equal(t, w.mpan, r.MPAN, "reading %d", i)
		assert.Equal(t, w.serial, r.MeterSerial, "reading %d", i)
		assert.Equal(t, w.typ, r.MeterType, "reading %d", i)
		assert.Equal(t, w.reg, r.RegisterID, "reading %d", i)
		assert.Equal(t, w.value, FormatValue(r.Value), "reading %d", i)
	}
}

func TestParse_NewMPANClearsMeter(t *testing.T) {
	_, err := NewParser().ParseString(lines(
		"026|1111111111111",
		"028|A1|S",
		"030|1|20231201100000|1",
		"026|2222222222222",
		"030|1|20231201100000|2",
	))

	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 5, le.Line)

	var se *SequenceError
	assert.ErrorAs(t, err, &se)
}

func TestParse_ReadingBeforeMPAN(t *testing.T) {
	// Whatever follows, the first reading is already out of sequence.
	_, err := NewParser().ParseString(lines(
		"ZHV|REF|FLOW",
		"030|1|20231201100000|1",
		"026|1234567890123",
		"028|M1|S",
		"030|1|20231201100000|1",
		"ZPT|REF|1",
	))

	var se *SequenceError
	require.ErrorAs(t, err, &se)

	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 2, le.Line)
	assert.Equal(t, "030|1|20231201100000|1", le.Text)
}

func TestParse_MalformedReadingBeforeMPAN(t *testing.T) {
	_, err := NewParser().ParseString(lines("ZHV|R|F", "030|1", "ZPT|R|1"))

	var se *SequenceError
	require.ErrorAs(t, err, &se)

	var fe *FormatError
	assert.False(t, errors.As(err, &fe))

	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 2, le.Line)
}

func TestParse_LineTooLong(t *testing.T) {
	long := "026|" + strings.Repeat("1", MaxLineLength)
	_, err := NewParser().ParseString(lines("ZHV|R|F", long, "030|1|20231201100000|1"))

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "line", fe.Field)
	assert.Contains(t, fe.Reason, "exceeds")

	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 2, le.Line)
}

func TestParse_LineErrorCarriesRawText(t *testing.T) {
	_, err := NewParser().ParseString("ZHV|R|F\r\n\n   026|12345|V   \r\n")

	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 3, le.Line, "blank lines still count toward line numbers")
	assert.Equal(t, "   026|12345|V   ", le.Text)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "12345", fe.Value)
	assert.Contains(t, err.Error(), "line 3")
}

func TestParse_EmptyResult(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"header and trailer only", lines("ZHV|REF|FLOW", "ZPT|REF|0")},
		{"groups without readings", lines("ZHV|REF|FLOW", "026|1234567890123", "028|M1|S", "ZPT|REF|0")},
		{"blank file", "\n\n  \n"},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := NewParser().ParseString(tt.input)
			assert.Nil(t, file)

			var ee *EmptyResultError
			require.ErrorAs(t, err, &ee)
		})
	}
}

func TestParse_UnknownTagsIgnored(t *testing.T) {
	file, err := NewParser().ParseString(lines(
		"ZHV|REF|FLOW",
		"026|1234567890123",
		"029|anything|goes",
		"028|M1|S",
		"032|x",
		"030|1|20231201100000|1",
		"ZPT|REF|1",
	))
	require.NoError(t, err)
	assert.Len(t, file.Readings, 1)
}

func TestParse_HeaderAndTrailerOptional(t *testing.T) {
	file, err := NewParser().ParseString(lines(
		"026|1234567890123",
		"028|M1|S",
		"030|1|20231201100000|1",
	))
	require.NoError(t, err)
	assert.Nil(t, file.Header)
	assert.Nil(t, file.Trailer)
	assert.Equal(t, "", file.FileReference())
}

func TestParse_RepeatedControlRecords(t *testing.T) {
	input := lines(
		"ZHV|FIRST|FLOW",
		"026|1234567890123",
		"028|M1|S",
		"030|1|20231201100000|1",
		"ZHV|SECOND|FLOW",
		"ZPT|SECOND|1",
	)

	t.Run("strict rejects second header", func(t *testing.T) {
		_, err := NewParser().ParseString(input)

		var se *SequenceError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Reason, "ZHV")

		var le *LineError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, 5, le.Line)
	})

	t.Run("lenient keeps last", func(t *testing.T) {
		file, err := NewParser(WithStrictControlRecords(false)).ParseString(input + "ZPT|THIRD|2\n")
		require.NoError(t, err)
		assert.Equal(t, "SECOND", file.FileReference())
		assert.Equal(t, "THIRD", file.Trailer.FileReference)
	})
}

func TestParse_ByteOrderMark(t *testing.T) {
	input := "\xEF\xBB\xBF" + lines("ZHV|REF|FLOW", "026|1234567890123", "028|M1|S", "030|1|20231201100000|1")

	file, err := NewParser().ParseString(input)
	require.NoError(t, err)
	require.NotNil(t, file.Header, "BOM must not hide the ZHV tag")
	assert.Equal(t, "REF", file.FileReference())
}

func TestParse_InvalidUTF8Sanitized(t *testing.T) {
	_, err := NewParser().ParseString(lines("026|1234567890123", "028|M1|S", "030|1|2023\x80|1"))

	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 3, le.Line)
	assert.True(t, utf8.ValidString(le.Text))
	assert.Contains(t, le.Text, "\uFFFD")
}

func TestParse_CustomLocation(t *testing.T) {
	utc := time.UTC
	file, err := NewParser(WithLocation(utc)).ParseString(lines(
		"026|1234567890123", "028|M1|S", "030|1|20230701120000|1",
	))
	require.NoError(t, err)
	assert.True(t, file.Readings[0].ReadingDate.Equal(time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)))
}

func TestStep_IsolatedTransitions(t *testing.T) {
	p := NewParser()

	st, rec, err := p.Step(State{MPAN: "1111111111111", MeterSerial: "X", MeterType: "H"}, split("026|2222222222222"))
	require.NoError(t, err)
	assert.Equal(t, State{MPAN: "2222222222222"}, st)
	assert.Equal(t, MeterPointRecord{MPAN: "2222222222222"}, rec)

	st, rec, err = p.Step(st, split("028|M9|"))
	require.NoError(t, err)
	assert.Equal(t, State{MPAN: "2222222222222", MeterSerial: "M9", MeterType: "S"}, st)
	assert.Equal(t, TagMeter, rec.Tag())

	before := st
	st, rec, err = p.Step(st, split("ZZZ|whatever"))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, before, st)

	st, _, err = p.Step(st, split("026|bad"))
	require.Error(t, err)
	assert.Equal(t, before, st, "failed step leaves state unchanged")
}

func TestLineError_Unwrap(t *testing.T) {
	inner := &FormatError{Field: "MPAN", Value: "1"}
	err := &LineError{Line: 4, Text: "026|1", Err: inner}

	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, `line 4: invalid MPAN: "1" (line: "026|1")`, err.Error())
}
