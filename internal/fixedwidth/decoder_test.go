package fixedwidth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpstables/internal/layout"
	"cpstables/pkg/domain"
)

func testLayout() layout.Layout {
	return layout.New([]layout.Field{
		{Name: "HRMONTH", Start: 0, End: 2},
		{Name: "PRTAGE", Start: 2, End: 5},
		{Name: "PWSSWGT", Start: 5, End: 15},
	})
}

func TestDecodeLine(t *testing.T) {
	d := NewDecoder(testLayout())
	rec, err := d.DecodeLine(1, []byte(" 4 42    123456"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), rec.Int("HRMONTH"))
	assert.Equal(t, int64(42), rec.Int("PRTAGE"))
	assert.Equal(t, int64(123456), rec.Int("PWSSWGT"))
	assert.Equal(t, []int64{4, 42, 123456}, rec.Values())
	_, ok := rec.Get("PESEX")
	assert.False(t, ok)
	assert.False(t, rec.Has("PESEX"))
}

func TestDecodeLineNegativeSentinel(t *testing.T) {
	d := NewDecoder(testLayout())
	rec, err := d.DecodeLine(1, []byte("12 -1        -1"))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), rec.Int("PRTAGE"))
	assert.Equal(t, int64(-1), rec.Int("PWSSWGT"))
}

func TestDecodeLineErrors(t *testing.T) {
	d := NewDecoder(testLayout())

	_, err := d.DecodeLine(7, []byte(" 4 4x    123456"))
	var derr *domain.RecordDecodeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 7, derr.Line)
	assert.Equal(t, "PRTAGE", derr.Field)

	_, err = d.DecodeLine(8, []byte(" 4 42"))
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "PWSSWGT", derr.Field)
	assert.ErrorIs(t, err, errShortLine)
}

func TestDecodeDropsBadLinesAndContinues(t *testing.T) {
	input := " 1 30     10000\r\n" +
		" 2 xx     10000\n" +
		"\n" +
		" 3 55     20000\n" +
		" 4 61"
	d := NewDecoder(testLayout())
	recs, stats, err := d.DecodeAll(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Stats{Lines: 4, Decoded: 2, Dropped: 2}, stats)
	assert.Equal(t, int64(55), recs[1].Int("PRTAGE"))
}

func TestDecodeRawBytes(t *testing.T) {
	// bytes outside the field window are never interpreted
	line := append([]byte(" 4 42    123456"), 0xff, 0xfe, '\n')
	d := NewDecoder(testLayout())
	recs, stats, err := d.DecodeAll(context.Background(), bytes.NewReader(line))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 0, stats.Dropped)
}

func TestDecodeCallbackErrorStops(t *testing.T) {
	boom := errors.New("stop")
	d := NewDecoder(testLayout())
	_, err := d.Decode(context.Background(), strings.NewReader(" 1 30     10000\n 2 31     10000\n"), func(Record) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDecodeHonoursCancellation(t *testing.T) {
	var b strings.Builder
	for i := 0; i < ctxCheckEvery+10; i++ {
		b.WriteString(" 1 30     10000\n")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDecoder(testLayout())
	_, _, err := d.DecodeAll(ctx, strings.NewReader(b.String()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatRoundTrip(t *testing.T) {
	l := testLayout()
	d := NewDecoder(l)
	for _, values := range [][]int64{{1, 16, 1}, {12, 999, 9999999999}, {4, -1, -1}, {0, 0, 0}} {
		line, err := Format(l, values)
		require.NoError(t, err)
		rec, err := d.DecodeLine(1, line)
		require.NoError(t, err)
		assert.Equal(t, values, rec.Values())

		again, err := Format(l, rec.Values())
		require.NoError(t, err)
		assert.Equal(t, line, again)
	}
}

func TestFormatErrors(t *testing.T) {
	l := testLayout()
	_, err := Format(l, []int64{1})
	assert.Error(t, err)
	_, err = Format(l, []int64{100, 1, 1})
	assert.Error(t, err)
}

func TestStatsAdd(t *testing.T) {
	s := Stats{Lines: 1, Decoded: 1}
	s.Add(Stats{Lines: 2, Decoded: 1, Dropped: 1})
	assert.Equal(t, Stats{Lines: 3, Decoded: 2, Dropped: 1}, s)
}
