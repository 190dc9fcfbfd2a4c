// Package recode derives the categorical and boolean variables of a
// respondent-month from its raw coded fields. Rules run top to bottom in
// registration order; later rules may overwrite earlier ones.
package recode

import (
	"cpstables/internal/fixedwidth"
	"cpstables/pkg/domain"
)

// Respondent is the working state of one record moving through the rules.
type Respondent struct {
	Raw   fixedwidth.Record
	Year  int
	Month int
	Obs   domain.Observation

	codes map[string]domain.Count
}

// NewRespondent copies the identity and numeric fields of raw into a fresh
// working record.
func NewRespondent(raw fixedwidth.Record, year, month int) *Respondent {
	r := &Respondent{Raw: raw, Year: year, Month: month, codes: make(map[string]domain.Count, len(codedFields))}
	r.Obs.Year = year
	r.Obs.Key = domain.ObservationKey{
		SurveyID:   raw.Int(FieldSurveyID),
		LineNumber: raw.Int(FieldLineNumber),
		Month:      month,
	}
	if m, ok := raw.Get(FieldMonth); ok {
		r.Obs.Key.Month = int(m)
	}
	r.Obs.MonthInSample = int(raw.Int(FieldMonthInSample))
	r.Obs.Age = int(raw.Int(FieldAge))
	r.Obs.EarningsEligible = raw.Int(FieldEarningsEligible) == 1
	r.Obs.EverServed = r.rawCount(FieldEverServed)
	r.Obs.ServedWhen = r.rawCount(FieldServedWhen)
	for _, f := range codedFields {
		r.codes[f] = r.rawCount(f)
	}
	return r
}

func (r *Respondent) rawCount(field string) domain.Count {
	if v, ok := r.Raw.Get(field); ok {
		return domain.Some(v)
	}
	return domain.None[int64]()
}

// Code returns the current value of a coded categorical field.
func (r *Respondent) Code(field string) domain.Count { return r.codes[field] }

// SetCode overwrites a coded categorical field.
func (r *Respondent) SetCode(field string, v domain.Count) { r.codes[field] = v }

// Rule is one step of the recode sequence. Apply returns false to drop the record.
type Rule interface {
	Name() string
	Apply(r *Respondent) bool
}

type ruleFunc struct {
	name string
	fn   func(r *Respondent) bool
}

func (f ruleFunc) Name() string             { return f.name }
func (f ruleFunc) Apply(r *Respondent) bool { return f.fn(r) }

// RuleFunc adapts fn to a Rule.
func RuleFunc(name string, fn func(r *Respondent) bool) Rule {
	return ruleFunc{name: name, fn: fn}
}

// Stats counts recode outcomes.
type Stats struct {
	Seen     int
	Kept     int
	Filtered int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Seen += other.Seen
	s.Kept += other.Kept
	s.Filtered += other.Filtered
}

// Engine applies an ordered list of rules.
type Engine struct {
	rules []Rule
}

// NewEngine constructs an empty engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Options parameterises the default rule set.
type Options struct {
	Labels     Labels
	Supplement *Supplement
}

// NewDefaultEngine builds the standard recode sequence. The supplement rule is
// registered only when opts.Supplement is set.
func NewDefaultEngine(opts Options) *Engine {
	labels := DefaultLabels().Merge(opts.Labels)
	e := NewEngine()
	e.Register(
		UniverseRule(),
		RescaleRule(),
		EmploymentStatusRule(),
		AgeBandRule(),
		EducationRule(),
		RaceRule(),
		OccupationGroupRule(),
		MonthKeyRule(),
	)
	if opts.Supplement != nil {
		e.Register(SupplementRule(opts.Supplement))
	}
	e.Register(
		MissingValueRule(),
		LabelRule(labels),
		IndustryRule(),
		LaborForceRule(labels),
	)
	return e
}

// Register appends rules to the engine.
func (e *Engine) Register(rules ...Rule) {
	e.rules = append(e.rules, rules...)
}

// Names returns rule names in evaluation order.
func (e *Engine) Names() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Name()
	}
	return out
}

// Apply runs every rule over one record. ok is false when a rule dropped it.
func (e *Engine) Apply(raw fixedwidth.Record, year, month int) (obs domain.Observation, ok bool) {
	r := NewRespondent(raw, year, month)
	for _, rule := range e.rules {
		if !rule.Apply(r) {
			return domain.Observation{}, false
		}
	}
	return r.Obs, true
}

// ApplyAll recodes a batch of records decoded from one monthly file.
func (e *Engine) ApplyAll(raws []fixedwidth.Record, year, month int) ([]domain.Observation, Stats) {
	out := make([]domain.Observation, 0, len(raws))
	var stats Stats
	for _, raw := range raws {
		stats.Seen++
		obs, ok := e.Apply(raw, year, month)
		if !ok {
			stats.Filtered++
			continue
		}
		stats.Kept++
		out = append(out, obs)
	}
	return out, stats
}
