package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestNullableJSON(t *testing.T) {
	type wrapper struct {
		A Float `json:"a"`
		B Float `json:"b"`
	}
	b, err := json.Marshal(wrapper{A: Some(1.5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":1.5,"b":null}` {
		t.Fatalf("unexpected json %s", b)
	}
	var back wrapper
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.A != Some(1.5) || back.B.Valid {
		t.Fatalf("round trip mismatch: %#v", back)
	}
}

func TestFloatOfRejectsNaN(t *testing.T) {
	if FloatOf(math.NaN()).Valid || FloatOf(math.Inf(1)).Valid {
		t.Fatalf("expected NaN and Inf to be undefined")
	}
	if v := FloatOf(2); !v.Valid || v.Value != 2 {
		t.Fatalf("expected defined value")
	}
}

func TestOr(t *testing.T) {
	if None[float64]().Or(3) != 3 {
		t.Fatalf("expected default")
	}
	if Some(1.0).Or(3) != 1 {
		t.Fatalf("expected value")
	}
}

func TestAggregateRowValuesRoundTrip(t *testing.T) {
	row := AggregateRow{Categories: map[string]string{ColState: "US", ColSex: "FEMALE"}}
	row.Population[SplitTotal] = Some(12.5)
	row.PopulationObserved[SplitTotal] = Some[int64](31)
	row.MedianEarnings[SplitCert1Yes] = Some(950.0)
	row.Smoothed[SmoothedCert1No] = Some(0.25)

	values := row.Values(true)
	if len(values) != len(TableColumns(true)) {
		t.Fatalf("values length %d header length %d", len(values), len(TableColumns(true)))
	}
	back, err := ParseAggregateRow(values, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.Categories[ColSex] != "FEMALE" || back.Population[SplitTotal] != Some(12.5) ||
		back.PopulationObserved[SplitTotal] != Some[int64](31) || back.MedianEarnings[SplitCert1Yes] != Some(950.0) ||
		back.Smoothed[SmoothedCert1No] != Some(0.25) || back.Population[SplitCert2No].Valid {
		t.Fatalf("round trip mismatch: %#v", back)
	}
	if _, err := ParseAggregateRow(values[:3], true); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestGroupKeyDistinguishesMissing(t *testing.T) {
	a := AggregateRow{Categories: map[string]string{ColState: ""}}
	b := AggregateRow{Categories: map[string]string{}}
	if a.GroupKey([]string{ColState}) == b.GroupKey([]string{ColState}) {
		t.Fatalf("expected empty and missing values to differ")
	}
}

func TestObservationColumn(t *testing.T) {
	obs := Observation{State: Some("OHIO"), MonthKey: 201604, BasePopulation: BasePopulation16}
	if v, ok := obs.Column(ColState); !ok || v != Some("OHIO") {
		t.Fatalf("state column: %v %v", v, ok)
	}
	if v, _ := obs.Column(ColMonth); v.Value != "201604" {
		t.Fatalf("month column: %v", v)
	}
	if _, ok := obs.Column("nope"); ok {
		t.Fatalf("expected unknown column")
	}
	if !KnownColumn(ColBasePopulation) || KnownColumn("PRTAGE") {
		t.Fatalf("KnownColumn mismatch")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &LayoutParseError{Source: "jan17.txt"}
	if !errors.Is(err, ErrLayoutParse) {
		t.Fatalf("expected ErrLayoutParse")
	}
	inner := errors.New("bad digit")
	var derr error = &RecordDecodeError{Line: 3, Field: "PRTAGE", Err: inner}
	if !errors.Is(derr, inner) {
		t.Fatalf("expected wrapped cause")
	}
	var target *RecordDecodeError
	if !errors.As(derr, &target) || target.Field != "PRTAGE" {
		t.Fatalf("expected RecordDecodeError")
	}
}

func TestMicrodataFilter(t *testing.T) {
	f := MicrodataFilter{FromMonth: 201601, ToMonth: 201612}
	if !f.Includes(201606) || f.Includes(201512) || f.Includes(201701) {
		t.Fatalf("filter bounds wrong")
	}
	if !(MicrodataFilter{}).Includes(190001) {
		t.Fatalf("open filter must include everything")
	}
}
