package recode

import (
	"cpstables/internal/fixedwidth"
	"cpstables/pkg/domain"
)

type certCodes struct {
	cert1, cert2, cert3 domain.Count
}

// Supplement indexes a certification extract by respondent-month.
type Supplement struct {
	rows       map[domain.ObservationKey]certCodes
	duplicates int
}

// NewSupplement indexes extract records. The extract's MONTH column stands in
// for HRMONTH. An extract without PECERT3 yields undefined third-cert codes.
// When a key repeats, the first record wins.
func NewSupplement(records []fixedwidth.Record) *Supplement {
	s := &Supplement{rows: make(map[domain.ObservationKey]certCodes, len(records))}
	for _, rec := range records {
		month, ok := rec.Get(FieldExtractMonth)
		if !ok {
			month = rec.Int(FieldMonth)
		}
		key := domain.ObservationKey{
			SurveyID:   rec.Int(FieldSurveyID),
			LineNumber: rec.Int(FieldLineNumber),
			Month:      int(month),
		}
		if _, dup := s.rows[key]; dup {
			s.duplicates++
			continue
		}
		s.rows[key] = certCodes{
			cert1: recordCount(rec, FieldCert1),
			cert2: recordCount(rec, FieldCert2),
			cert3: recordCount(rec, FieldCert3),
		}
	}
	return s
}

func recordCount(rec fixedwidth.Record, field string) domain.Count {
	if v, ok := rec.Get(field); ok {
		return domain.Some(v)
	}
	return domain.None[int64]()
}

// Len returns the number of distinct keys.
func (s *Supplement) Len() int { return len(s.rows) }

// Duplicates returns how many records were ignored for repeating a key.
func (s *Supplement) Duplicates() int { return s.duplicates }

// SupplementRule left-joins certification codes onto the record. Records
// without a match end with undefined certification codes.
func SupplementRule(s *Supplement) Rule {
	return RuleFunc("supplement", func(r *Respondent) bool {
		certs := s.rows[r.Obs.Key]
		r.SetCode(FieldCert1, certs.cert1)
		r.SetCode(FieldCert2, certs.cert2)
		r.SetCode(FieldCert3, certs.cert3)
		return true
	})
}
