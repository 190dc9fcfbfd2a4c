package recode

// Raw field names of the basic monthly public-use file.
const (
	FieldSurveyID         = "QSTNUM"
	FieldLineNumber       = "PULINENO"
	FieldMonth            = "HRMONTH"
	FieldMonthInSample    = "HRMIS"
	FieldAge              = "PRTAGE"
	FieldPersonType       = "PRPERTYP"
	FieldHouseholdWeight  = "HWHHWGT"
	FieldWeight           = "PWSSWGT"
	FieldOtherWeight      = "PWORWGT"
	FieldVeteranWeight    = "PWVETWGT"
	FieldEarnings         = "PRERNWA"
	FieldEmployed         = "PREMPNOT"
	FieldFullTimeLF       = "PRFTLF"
	FieldEducation        = "PEEDUCA"
	FieldRace             = "PTDTRACE"
	FieldOccupationGroup  = "PRMJOCGR"
	FieldEarningsEligible = "PRERELG"
	FieldState            = "GESTFIPS"
	FieldSex              = "PESEX"
	FieldHispanic         = "PEHSPNON"
	FieldLaborForceDetail = "PEMLR"
	FieldClassOfWorker    = "PRCOW1"
	FieldIndustry         = "PRDTIND1"
	FieldOccupation       = "PRDTOCC1"
	FieldCert1            = "PECERT1"
	FieldCert2            = "PECERT2"
	FieldCert3            = "PECERT3"
	FieldCivilianLF       = "PRCIVLF"
	FieldExperiencedLF    = "PREXPLF"
	FieldEverServed       = "PEAFEVER"
	FieldServedWhen       = "PEAFWHN1"

	// The certification extract names its month column differently.
	FieldExtractMonth = "MONTH"
	FieldExtractYear  = "HRYEAR4"
)

// Scale factors of implied decimal places.
const (
	WeightScale   = 10000.0
	EarningsScale = 100.0
)

// MonthlyFields lists every raw field the recode stage reads from a basic
// monthly file. Use it as the layout selector.
var MonthlyFields = []string{
	FieldSurveyID, FieldLineNumber, FieldMonth, FieldMonthInSample,
	FieldAge, FieldPersonType, FieldHouseholdWeight,
	FieldWeight, FieldOtherWeight, FieldVeteranWeight, FieldEarnings,
	FieldEmployed, FieldFullTimeLF, FieldEducation, FieldRace, FieldOccupationGroup,
	FieldEarningsEligible, FieldState, FieldSex, FieldHispanic, FieldLaborForceDetail,
	FieldClassOfWorker, FieldIndustry, FieldOccupation,
	FieldCert1, FieldCert2, FieldCert3,
	FieldCivilianLF, FieldExperiencedLF, FieldEverServed, FieldServedWhen,
}

// ExtractExcluded lists certification-extract fields never read.
var ExtractExcluded = []string{FieldExtractYear, "PXCERT1", "PXCERT2", "PXCERT3"}

// codedFields are categorical raw fields carried as codes until labelling.
var codedFields = []string{
	FieldState, FieldSex, FieldHispanic, FieldLaborForceDetail, FieldClassOfWorker,
	FieldIndustry, FieldOccupation, FieldCert1, FieldCert2, FieldCert3,
	FieldCivilianLF, FieldExperiencedLF, FieldFullTimeLF,
}
