package recode

// Major industry groups.
const (
	IndAgriculture   = "Agriculture and related industries"
	IndMining        = "Mining, quarrying, and oil and gas extraction"
	IndConstruction  = "Construction"
	IndManufacturing = "Manufacturing"
	IndWholesale     = "Wholesale trade"
	IndRetail        = "Retail trade"
	IndTransport     = "Transportation and utilities"
	IndInformation   = "Information"
	IndFinancial     = "Financial activities"
	IndProfessional  = "Professional and business services"
	IndEduHealth     = "Education and health services"
	IndLeisure       = "Leisure and hospitality"
	IndOther         = "Other services"
	IndPublicAdmin   = "Public administration"
)

var majorIndustry = map[string]string{
	"Agriculture":                                   IndAgriculture,
	"Forestry, logging, fishing, and hunting":       IndAgriculture,
	"Mining, quarrying, and oil and gas extraction": IndMining,
	"Construction":                                  IndConstruction,

	"Nonmetallic mineral product manufacturing":       IndManufacturing,
	"Primary metals and fabricated metal products":    IndManufacturing,
	"Machinery manufacturing":                         IndManufacturing,
	"Computer and electronic product manufacturing":   IndManufacturing,
	"Electrical equipment, appliance manufacturing":   IndManufacturing,
	"Transportation equipment manufacturing":          IndManufacturing,
	"Wood products":                                   IndManufacturing,
	"Furniture and fixtures manufacturing":            IndManufacturing,
	"Miscellaneous and not specified manufacturing":   IndManufacturing,
	"Food manufacturing":                              IndManufacturing,
	"Beverage and tobacco products":                   IndManufacturing,
	"Textile, apparel, and leather manufacturing":     IndManufacturing,
	"Paper and printing":                              IndManufacturing,
	"Petroleum and coal products manufacturing":       IndManufacturing,
	"Chemical manufacturing":                          IndManufacturing,
	"Plastics and rubber products":                    IndManufacturing,
	"Wholesale trade":                                 IndWholesale,
	"Retail trade":                                    IndRetail,
	"Transportation and warehousing":                  IndTransport,
	"Utilities":                                       IndTransport,
	"Publishing industries (except internet)":         IndInformation,
	"Motion picture and sound recording industries":   IndInformation,
	"Broadcasting (except internet)":                  IndInformation,
	"Internet publishing and broadcasting":            IndInformation,
	"Telecommunications":                              IndInformation,
	"Internet service providers and data processing services": IndInformation,
	"Other information services":                      IndInformation,

	"Finance":                     IndFinancial,
	"Insurance":                   IndFinancial,
	"Real estate":                 IndFinancial,
	"Rental and leasing services": IndFinancial,

	"Professional, scientific, and technical services": IndProfessional,
	"Management of companies and enterprises":          IndProfessional,
	"Administrative and support services":              IndProfessional,
	"Waste management and remediation services":        IndProfessional,

	"Educational services":                   IndEduHealth,
	"Hospitals":                              IndEduHealth,
	"Health care services, except hospitals": IndEduHealth,
	"Social assistance services":             IndEduHealth,

	"Arts, entertainment, and recreation": IndLeisure,
	"Accommodation":                       IndLeisure,
	"Food services and drinking places":   IndLeisure,

	"Repair and maintenance":                    IndOther,
	"Personal and laundry services":             IndOther,
	"Membership associations and organizations": IndOther,
	"Private households":                        IndOther,

	"Public administration": IndPublicAdmin,
	"Armed forces":          IndPublicAdmin,
}

// MajorIndustry returns the major group of a detailed industry name.
// Unknown names pass through unchanged.
func MajorIndustry(detailed string) string {
	if major, ok := majorIndustry[detailed]; ok {
		return major
	}
	return detailed
}
