package domain

import "strconv"

// Column names understood by aggregation plans and the microdata store.
const (
	ColState              = "state"
	ColBasePopulation     = "base_pop"
	ColLaborForce         = "labforce"
	ColEmploymentType     = "emp_type"
	ColEmploymentStat     = "emp_stat"
	ColEducation          = "education"
	ColEducation2         = "education2"
	ColEducation3         = "education3"
	ColSex                = "sex"
	ColRace               = "race"
	ColAge                = "age"
	ColAgeBand            = "age_band"
	ColHispanic           = "hispanic"
	ColIndustry           = "industry"
	ColDetailedIndustry   = "detailed_industry"
	ColOccupation         = "occupation"
	ColOccupationGroup    = "occupation_group"
	ColEmploymentStatus   = "employment_status"
	ColLaborForceDetail   = "labor_force_detail"
	ColCivilianLaborForce = "civilian_labor_force"
	ColCert1              = "cert1"
	ColCert2              = "cert2"
	ColCert3              = "cert3"
	ColMonth              = "month"
	ColMonthInSample      = "month_in_sample"
	ColAgeYears           = "age_years"
	ColEarningsEligible   = "earnings_eligible"
)

// Base population labels.
const (
	BasePopulation16 = "Civilian Population 16 and up"
	BasePopulation25 = "Civilian Population 25 and up"
)

// ObservationKey is the natural key of a respondent-month.
type ObservationKey struct {
	SurveyID   int64 `json:"survey_id"`
	LineNumber int64 `json:"line_number"`
	Month      int   `json:"month"`
}

// Observation is one respondent-month after decoding, unit conversion and recoding.
// It holds no reference types, so copies never share state.
type Observation struct {
	Key           ObservationKey `json:"key"`
	Year          int            `json:"year"`
	MonthKey      int            `json:"month_key"`
	MonthInSample int            `json:"month_in_sample"`
	Age           int            `json:"age"`

	Weight        Float `json:"weight"`
	OtherWeight   Float `json:"other_weight"`
	VeteranWeight Float `json:"veteran_weight"`
	Earnings      Float `json:"earnings"`

	EarningsEligible bool  `json:"earnings_eligible"`
	EverServed       Count `json:"ever_served"`
	ServedWhen       Count `json:"served_when"`

	State              Text `json:"state"`
	Sex                Text `json:"sex"`
	Race               Text `json:"race"`
	Hispanic           Text `json:"hispanic"`
	AgeBand            Text `json:"age_band"`
	AgeGroup           Text `json:"age_group"`
	Education          Text `json:"education"`
	Education2         Text `json:"education2"`
	Education3         Text `json:"education3"`
	EmploymentStatus   Text `json:"employment_status"`
	LaborForce         Text `json:"labforce"`
	WorkStatus         Text `json:"emp_stat"`
	LaborForceDetail   Text `json:"labor_force_detail"`
	CivilianLaborForce Text `json:"civilian_labor_force"`
	ClassOfWorker      Text `json:"class_of_worker"`
	DetailedIndustry   Text `json:"detailed_industry"`
	Industry           Text `json:"industry"`
	Occupation         Text `json:"occupation"`
	OccupationGroup    Text `json:"occupation_group"`
	Cert1              Text `json:"cert1"`
	Cert2              Text `json:"cert2"`
	Cert3              Text `json:"cert3"`

	BasePopulation string `json:"base_pop"`
}

// Column resolves a named column to its categorical value. ok is false for
// unknown column names.
func (o Observation) Column(name string) (v Text, ok bool) {
	switch name {
	case ColState:
		return o.State, true
	case ColBasePopulation:
		return TextOf(o.BasePopulation), true
	case ColLaborForce:
		return o.LaborForce, true
	case ColEmploymentType:
		return o.ClassOfWorker, true
	case ColEmploymentStat:
		return o.WorkStatus, true
	case ColEducation:
		return o.Education, true
	case ColEducation2:
		return o.Education2, true
	case ColEducation3:
		return o.Education3, true
	case ColSex:
		return o.Sex, true
	case ColRace:
		return o.Race, true
	case ColAge:
		return o.AgeGroup, true
	case ColAgeBand:
		return o.AgeBand, true
	case ColHispanic:
		return o.Hispanic, true
	case ColIndustry:
		return o.Industry, true
	case ColDetailedIndustry:
		return o.DetailedIndustry, true
	case ColOccupation:
		return o.Occupation, true
	case ColOccupationGroup:
		return o.OccupationGroup, true
	case ColEmploymentStatus:
		return o.EmploymentStatus, true
	case ColLaborForceDetail:
		return o.LaborForceDetail, true
	case ColCivilianLaborForce:
		return o.CivilianLaborForce, true
	case ColCert1:
		return o.Cert1, true
	case ColCert2:
		return o.Cert2, true
	case ColCert3:
		return o.Cert3, true
	case ColMonth:
		return Some(strconv.Itoa(o.MonthKey)), true
	case ColMonthInSample:
		return Some(strconv.Itoa(o.MonthInSample)), true
	case ColAgeYears:
		return Some(strconv.Itoa(o.Age)), true
	case ColEarningsEligible:
		return Some(strconv.FormatBool(o.EarningsEligible)), true
	}
	return Text{}, false
}

// KnownColumn reports whether name resolves through Column.
func KnownColumn(name string) bool {
	_, ok := Observation{}.Column(name)
	return ok
}
