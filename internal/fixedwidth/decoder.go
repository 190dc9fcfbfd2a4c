// Package fixedwidth extracts integer fields from fixed-width survey lines.
package fixedwidth

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"cpstables/internal/layout"
	"cpstables/pkg/domain"
)

var errShortLine = errors.New("line shorter than field end")

// Record is one decoded line: one integer per layout field, in layout order.
type Record struct {
	layout layout.Layout
	values []int64
}

// NewRecord builds a record over l. values must follow the layout order.
func NewRecord(l layout.Layout, values []int64) Record {
	return Record{layout: l, values: append([]int64(nil), values...)}
}

// Get returns the value of a named field.
func (r Record) Get(name string) (int64, bool) {
	i, ok := r.layout.Index(name)
	if !ok {
		return 0, false
	}
	return r.values[i], true
}

// Int returns the named field, or 0 when the layout lacks it.
func (r Record) Int(name string) int64 {
	v, _ := r.Get(name)
	return v
}

// Has reports whether the record's layout carries name.
func (r Record) Has(name string) bool {
	_, ok := r.layout.Index(name)
	return ok
}

// Values returns a copy of the decoded values in layout order.
func (r Record) Values() []int64 { return append([]int64(nil), r.values...) }

// Layout returns the layout the record was decoded with.
func (r Record) Layout() layout.Layout { return r.layout }

// Stats summarises one decoding pass.
type Stats struct {
	Lines   int
	Decoded int
	Dropped int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Lines += other.Lines
	s.Decoded += other.Decoded
	s.Dropped += other.Dropped
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used to report dropped records.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Decoder slices fixed-width lines according to a layout.
type Decoder struct {
	layout layout.Layout
	logger *slog.Logger
}

// NewDecoder returns a decoder for l.
func NewDecoder(l layout.Layout, opts ...Option) *Decoder {
	d := &Decoder{layout: l, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeLine extracts every layout field from line. lineNo is only used for
// error reporting. The line is treated as raw 8-bit text.
func (d *Decoder) DecodeLine(lineNo int, line []byte) (Record, error) {
	values := make([]int64, len(d.layout.Fields))
	for i, f := range d.layout.Fields {
		if f.End > len(line) {
			return Record{}, &domain.RecordDecodeError{Line: lineNo, Field: f.Name, Err: errShortLine}
		}
		raw := bytes.TrimSpace(line[f.Start:f.End])
		v, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return Record{}, &domain.RecordDecodeError{Line: lineNo, Field: f.Name, Err: err}
		}
		values[i] = v
	}
	return Record{layout: d.layout, values: values}, nil
}

const ctxCheckEvery = 4096

// Decode streams r line by line, calling fn for each decoded record. Lines
// that fail to decode are dropped and counted; an error from fn or from the
// reader stops decoding.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, fn func(Record) error) (Stats, error) {
	var stats Stats
	reader := bufio.NewReaderSize(r, 256*1024)
	lineNo := 0
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if lineNo%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return stats, err
				}
			}
			line = bytes.TrimRight(line, "\r\n")
			if len(line) > 0 {
				stats.Lines++
				rec, err := d.DecodeLine(lineNo, line)
				if err != nil {
					stats.Dropped++
					d.logger.Debug("dropped record", "error", err)
				} else {
					stats.Decoded++
					if err := fn(rec); err != nil {
						return stats, err
					}
				}
			}
		}
		if readErr == io.EOF {
			return stats, nil
		}
		if readErr != nil {
			return stats, fmt.Errorf("read line %d: %w", lineNo+1, readErr)
		}
	}
}

// DecodeAll collects every decodable record of r.
func (d *Decoder) DecodeAll(ctx context.Context, r io.Reader) ([]Record, Stats, error) {
	var out []Record
	stats, err := d.Decode(ctx, r, func(rec Record) error {
		out = append(out, rec)
		return nil
	})
	return out, stats, err
}

// Format renders values back into a fixed-width line over l, right-aligning
// each value inside its field and blank-filling gaps.
func Format(l layout.Layout, values []int64) ([]byte, error) {
	if len(values) != l.Len() {
		return nil, fmt.Errorf("format: %d values for %d fields", len(values), l.Len())
	}
	line := bytes.Repeat([]byte{' '}, l.MinLineLength())
	for i, f := range l.Fields {
		s := strconv.FormatInt(values[i], 10)
		if len(s) > f.Width() {
			return nil, fmt.Errorf("format: value %s overflows field %s", s, f.Name)
		}
		copy(line[f.End-len(s):f.End], s)
	}
	return line, nil
}
