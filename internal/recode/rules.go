package recode

import (
	"cpstables/pkg/domain"
)

// Derived category labels.
const (
	FullTime = "Full-time"
	PartTime = "Part-time"

	AgeBand16to24 = "16 to 24"
	AgeBand25to54 = "25 to 54"
	AgeBand55Plus = "55 and older"

	Age16to24 = "16 to 24"
	Age25to34 = "25 to 34"
	Age35to44 = "35 to 44"
	Age45to54 = "45 to 54"
	Age55to64 = "55 to 64"
	Age65Plus = "65 and older"

	EduNoDiploma      = "NO HIGH SCHOOL DIPLOMA"
	EduHSGraduate     = "HS GRADUATE, NO COLLEGE"
	EduSomeCollege    = "SOME COLLEGE, NO DEGREE"
	EduAssociates     = "ASSOCIATES DEGREE"
	EduBachelors      = "BACHELORS DEGREE"
	EduAdvanced       = "ADVANCED DEGREE"
	EduSomeCollegeOrA = "SOME COLLEGE OR ASSOCIATES"
	EduBachelorsPlus  = "BACHELORS OR HIGHER"
	EduHSOrGED        = "HS GRADUATE OR GED"
	EduMidSkilled     = "MID-SKILLED"

	RaceWhite      = "WHITE"
	RaceBlack      = "BLACK"
	RaceAsian      = "ASIAN"
	RaceIndigenous = "INDIGENOUS"
	RaceMulti      = "MULTI-RACIAL"

	OccFarmingConstruction = "Farming and Construction"

	Employed           = "EMPLOYED"
	Unemployed         = "UNEMPLOYED"
	NotInLaborForce    = "NOT IN LABOR FORCE"
	FullTimeLaborForce = "FULL TIME LABOR FORCE"
	PartTimeLaborForce = "PART TIME LABOR FORCE"
	WorkFullTime       = "FULL_TIME"
	WorkPartTime       = "PART_TIME"
)

// UniverseRule keeps adult civilian persons in weighted households.
func UniverseRule() Rule {
	return RuleFunc("universe", func(r *Respondent) bool {
		return r.Raw.Int(FieldAge) >= 16 &&
			r.Raw.Int(FieldPersonType) == 2 &&
			r.Raw.Int(FieldHouseholdWeight) > 0
	})
}

// RescaleRule applies the implied decimal places of weights and earnings.
func RescaleRule() Rule {
	return RuleFunc("rescale", func(r *Respondent) bool {
		r.Obs.Weight = scaled(r, FieldWeight, WeightScale)
		r.Obs.OtherWeight = scaled(r, FieldOtherWeight, WeightScale)
		r.Obs.VeteranWeight = scaled(r, FieldVeteranWeight, WeightScale)
		r.Obs.Earnings = scaled(r, FieldEarnings, EarningsScale)
		return true
	})
}

func scaled(r *Respondent, field string, scale float64) domain.Float {
	v, ok := r.Raw.Get(field)
	if !ok {
		return domain.None[float64]()
	}
	return domain.Some(float64(v) / scale)
}

// EmploymentStatusRule marks employed persons as full- or part-time.
func EmploymentStatusRule() Rule {
	return RuleFunc("employment_status", func(r *Respondent) bool {
		if r.Raw.Int(FieldEmployed) != 1 {
			return true
		}
		switch r.Raw.Int(FieldFullTimeLF) {
		case 1:
			r.Obs.EmploymentStatus = domain.Some(FullTime)
		case 2:
			r.Obs.EmploymentStatus = domain.Some(PartTime)
		}
		return true
	})
}

// AgeBandRule assigns the three-band and six-band age groupings.
func AgeBandRule() Rule {
	return RuleFunc("age_bands", func(r *Respondent) bool {
		r.Obs.AgeBand = AgeBand(r.Obs.Age)
		r.Obs.AgeGroup = AgeGroup(r.Obs.Age)
		return true
	})
}

// AgeBand returns the three-band grouping; undefined below 16.
func AgeBand(age int) domain.Text {
	switch {
	case age < 16:
		return domain.None[string]()
	case age <= 24:
		return domain.Some(AgeBand16to24)
	case age >= 55:
		return domain.Some(AgeBand55Plus)
	}
	return domain.Some(AgeBand25to54)
}

// AgeGroup returns the six-band grouping; undefined below 16.
func AgeGroup(age int) domain.Text {
	switch {
	case age < 16:
		return domain.None[string]()
	case age <= 24:
		return domain.Some(Age16to24)
	case age <= 34:
		return domain.Some(Age25to34)
	case age <= 44:
		return domain.Some(Age35to44)
	case age <= 54:
		return domain.Some(Age45to54)
	case age <= 64:
		return domain.Some(Age55to64)
	}
	return domain.Some(Age65Plus)
}

// EducationRule derives the three attainment tiers for persons over 24.
func EducationRule() Rule {
	return RuleFunc("education", func(r *Respondent) bool {
		if r.Obs.Age <= 24 {
			return true
		}
		code := r.Raw.Int(FieldEducation)
		r.Obs.Education = Education(code)
		r.Obs.Education2 = Education2(code)
		r.Obs.Education3 = Education3(code)
		return true
	})
}

// Education maps attainment codes to six detailed tiers.
func Education(code int64) domain.Text {
	switch {
	case code >= 31 && code <= 38:
		return domain.Some(EduNoDiploma)
	case code == 39:
		return domain.Some(EduHSGraduate)
	case code == 40:
		return domain.Some(EduSomeCollege)
	case code == 41 || code == 42:
		return domain.Some(EduAssociates)
	case code == 43:
		return domain.Some(EduBachelors)
	case code >= 44 && code <= 46:
		return domain.Some(EduAdvanced)
	}
	return domain.None[string]()
}

// Education2 maps attainment codes to the collapsed tiers used for
// publication. High school graduates have no tier.
func Education2(code int64) domain.Text {
	switch {
	case code >= 31 && code <= 38:
		return domain.Some(EduNoDiploma)
	case code >= 40 && code <= 42:
		return domain.Some(EduSomeCollegeOrA)
	case code >= 43 && code <= 46:
		return domain.Some(EduBachelorsPlus)
	}
	return domain.None[string]()
}

// Education3 maps attainment codes to skill tiers.
func Education3(code int64) domain.Text {
	switch {
	case code >= 31 && code <= 38:
		return domain.Some(EduNoDiploma)
	case code == 39:
		return domain.Some(EduHSOrGED)
	case code >= 40 && code <= 42:
		return domain.Some(EduMidSkilled)
	case code >= 43 && code <= 46:
		return domain.Some(EduBachelorsPlus)
	}
	return domain.None[string]()
}

// RaceRule collapses detailed race codes.
func RaceRule() Rule {
	return RuleFunc("race", func(r *Respondent) bool {
		r.Obs.Race = domain.Some(Race(r.Raw.Int(FieldRace)))
		return true
	})
}

// Race maps a detailed race code to its collapsed group.
func Race(code int64) string {
	switch code {
	case 1:
		return RaceWhite
	case 2:
		return RaceBlack
	case 4:
		return RaceAsian
	case 3, 5:
		return RaceIndigenous
	}
	return RaceMulti
}

// OccupationGroupRule flags farming and construction occupations.
func OccupationGroupRule() Rule {
	return RuleFunc("occupation_group", func(r *Respondent) bool {
		if c := r.Raw.Int(FieldOccupationGroup); c == 4 || c == 5 {
			r.Obs.OccupationGroup = domain.Some(OccFarmingConstruction)
		}
		return true
	})
}

// MonthKeyRule stamps the sortable year-month key.
func MonthKeyRule() Rule {
	return RuleFunc("month_key", func(r *Respondent) bool {
		r.Obs.MonthKey = MonthKey(r.Year, r.Obs.Key.Month)
		return true
	})
}

// MonthKey returns 100*year + month.
func MonthKey(year, month int) int {
	return 100*year + month
}

// MissingValueRule turns sentinel codes into undefined values.
func MissingValueRule() Rule {
	return RuleFunc("missing_values", func(r *Respondent) bool {
		if c, ok := r.Code(FieldCivilianLF).Get(); ok && c == -1 {
			r.SetCode(FieldCivilianLF, domain.None[int64]())
		}
		if w, ok := r.Obs.Weight.Get(); ok && w < 0 {
			r.Obs.Weight = domain.None[float64]()
		}
		for _, f := range []string{FieldCert1, FieldCert2} {
			if c, ok := r.Code(f).Get(); ok && c < 0 {
				r.SetCode(f, domain.None[int64]())
			}
		}
		if c, ok := r.Code(FieldCert3).Get(); ok && c == -1 {
			r.SetCode(FieldCert3, domain.None[int64]())
		}
		return true
	})
}

// labelTargets binds labelled raw fields to their observation columns.
var labelTargets = []struct {
	field string
	set   func(o *domain.Observation, v domain.Text)
}{
	{FieldState, func(o *domain.Observation, v domain.Text) { o.State = v }},
	{FieldSex, func(o *domain.Observation, v domain.Text) { o.Sex = v }},
	{FieldHispanic, func(o *domain.Observation, v domain.Text) { o.Hispanic = v }},
	{FieldLaborForceDetail, func(o *domain.Observation, v domain.Text) { o.LaborForceDetail = v }},
	{FieldClassOfWorker, func(o *domain.Observation, v domain.Text) { o.ClassOfWorker = v }},
	{FieldIndustry, func(o *domain.Observation, v domain.Text) { o.DetailedIndustry = v }},
	{FieldOccupation, func(o *domain.Observation, v domain.Text) { o.Occupation = v }},
	{FieldCert1, func(o *domain.Observation, v domain.Text) { o.Cert1 = v }},
	{FieldCert2, func(o *domain.Observation, v domain.Text) { o.Cert2 = v }},
	{FieldCert3, func(o *domain.Observation, v domain.Text) { o.Cert3 = v }},
	{FieldCivilianLF, func(o *domain.Observation, v domain.Text) { o.CivilianLaborForce = v }},
}

// LabelRule replaces coded categorical fields with their names. Codes without
// a label keep their decimal rendering.
func LabelRule(labels Labels) Rule {
	return RuleFunc("labels", func(r *Respondent) bool {
		for _, t := range labelTargets {
			t.set(&r.Obs, labels.Text(t.field, r.Code(t.field)))
		}
		return true
	})
}

// IndustryRule rolls detailed industries up to major groups.
func IndustryRule() Rule {
	return RuleFunc("industry", func(r *Respondent) bool {
		if name, ok := r.Obs.DetailedIndustry.Get(); ok {
			r.Obs.Industry = domain.Some(MajorIndustry(name))
		}
		return true
	})
}

// LaborForceRule derives labor-force status and full/part-time work status.
func LaborForceRule(labels Labels) Rule {
	return RuleFunc("labor_force", func(r *Respondent) bool {
		lf := NotInLaborForce
		switch labels.Text(FieldExperiencedLF, r.Code(FieldExperiencedLF)).Or("") {
		case Employed:
			lf = Employed
		case Unemployed:
			lf = Unemployed
		}
		r.Obs.LaborForce = domain.Some(lf)
		status := lf
		if lf == Employed {
			switch labels.Text(FieldFullTimeLF, r.Code(FieldFullTimeLF)).Or("") {
			case PartTimeLaborForce:
				status = WorkPartTime
			case FullTimeLaborForce:
				status = WorkFullTime
			}
		}
		r.Obs.WorkStatus = domain.Some(status)
		return true
	})
}
