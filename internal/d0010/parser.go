// Package d0010 parses D0010 meter-reading flow files.
//
// A flow file is a pipe-delimited, line-oriented document:
//
//	ZHV|REF1|D0010002|...        header
//	026|1234567890123|...        MPAN group
//	028|M001|S|...               meter within the group
//	030|01|20231201100000|123.4  reading for that meter
//	ZPT|REF1|1                   trailer
//
// Readings only make sense relative to the most recent 026 and 028 lines, so
// the Parser folds an explicit State through the file. A 026 line replaces the
// MPAN and clears the meter; a 028 line sets the meter and keeps the MPAN.
//
// Parsing is all-or-nothing: the first bad line aborts the file with a
// LineError carrying the line number and raw text.
package d0010

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// MaxLineLength bounds a single line. D0010 lines are short; anything longer
// is treated as a corrupt file.
var MaxLineLength = 64 * 1024

// State is the correlation context carried from line to line.
type State struct {
	MPAN        string
	MeterSerial string
	MeterType   string
}

// File is the structured result of parsing one flow file.
type File struct {
	Header   *Header
	Readings []Reading
	Trailer  *Trailer
}

// FileReference returns the header's file reference, or "" without a header.
func (f *File) FileReference() string {
	if f.Header == nil {
		return ""
	}
	return f.Header.FileReference
}

// Parser walks flow-file lines. The zero value is not usable; use NewParser.
type Parser struct {
	loc    *time.Location
	strict bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the civil timezone reading timestamps are resolved in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithStrictControlRecords controls how repeated ZHV/ZPT lines are handled.
// Strict (the default) rejects a second header or trailer with a
// SequenceError; lenient keeps the last one seen.
func WithStrictControlRecords(strict bool) Option {
	return func(p *Parser) {
		p.strict = strict
	}
}

// NewParser returns a Parser resolving timestamps in UK time, strict about
// repeated control records.
func NewParser(opts ...Option) *Parser {
	p := &Parser{loc: ukLocation, strict: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Step applies one split line to the state. It returns the next state and the
// parsed record (nil for unknown tags).
func (p *Parser) Step(st State, fields []string) (State, Record, error) {
	switch fields[0] {
	case TagHeader:
		return st, ParseHeader(fields), nil

	case TagMeterPoint:
		rec, err := ParseMeterPoint(fields)
		if err != nil {
			return st, nil, err
		}
		return State{MPAN: rec.MPAN}, rec, nil

	case TagMeter:
		rec, err := ParseMeter(fields)
		if err != nil {
			return st, nil, err
		}
		st.MeterSerial = rec.SerialNumber
		st.MeterType = rec.MeterType
		return st, rec, nil

	case TagReading:
		rec, err := ParseReading(fields, st, p.loc)
		if err != nil {
			return st, nil, err
		}
		return st, rec, nil

	case TagTrailer:
		return st, ParseTrailer(fields), nil
	}

	return st, nil, nil
}

// Parse reads every line of r. Blank lines are skipped without touching
// state. It fails with a *LineError on the first bad record and with
// *EmptyResultError when no readings were found.
func (p *Parser) Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(NewReader(r))
	scanner.Buffer(make([]byte, 0, 4096), MaxLineLength)

	file := &File{}
	var st State
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		raw := sanitizeLine(strings.TrimRight(scanner.Text(), "\r"))

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		next, rec, err := p.Step(st, strings.Split(line, Delimiter))
		if err == nil {
			err = p.collect(file, rec)
		}
		if err != nil {
			return nil, &LineError{Line: lineNum, Text: raw, Err: err}
		}
		st = next
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &LineError{Line: lineNum + 1, Err: &FormatError{
				Field:  "line",
				Value:  fmt.Sprintf("%d+ bytes", MaxLineLength),
				Reason: fmt.Sprintf("exceeds %d bytes", MaxLineLength),
			}}
		}
		return nil, fmt.Errorf("read line %d: %w", lineNum+1, err)
	}

	if len(file.Readings) == 0 {
		return nil, &EmptyResultError{}
	}

	return file, nil
}

// ParseString is a convenience wrapper for tests and small inputs.
func (p *Parser) ParseString(s string) (*File, error) {
	return p.Parse(strings.NewReader(s))
}

func (p *Parser) collect(file *File, rec Record) error {
	switch r := rec.(type) {
	case Header:
		if file.Header != nil && p.strict {
			return &SequenceError{Reason: "repeated ZHV header record"}
		}
		file.Header = &r
	case Trailer:
		if file.Trailer != nil && p.strict {
			return &SequenceError{Reason: "repeated ZPT trailer record"}
		}
		file.Trailer = &r
	case Reading:
		file.Readings = append(file.Readings, r)
	}
	return nil
}
