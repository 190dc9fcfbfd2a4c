package pipeline

import (
	"fmt"
	"path/filepath"
)

var monthNames = [12]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// MonthFile is the basic monthly public-use file of year and month (1-12)
// inside dir, e.g. jan17pub.dat.
func MonthFile(dir string, year, month int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%02dpub.dat", monthNames[month-1], year%100))
}

// LayoutFor names the record layout description that applies to year.
func LayoutFor(year int) string {
	switch {
	case year == 2015 || year == 2016:
		return "January_2015_Record_Layout.txt"
	case year == 2020:
		return "2020_Basic_CPS_Public_Use_Record_Layout_plus_IO_Code_list.txt"
	default:
		return "January_2017_Record_Layout.txt"
	}
}

// SupplementFor names the certification extract layout and data files of
// year. ok is false for years without an extract.
func SupplementFor(year int) (layoutName, dataName string, ok bool) {
	if year != 2015 && year != 2016 {
		return "", "", false
	}
	yy := year % 100
	return fmt.Sprintf("Certification_extract_file_%d_rec_layout.txt", year),
		fmt.Sprintf("jan%02d-dec%02dcert_ext.dat", yy, yy), true
}
