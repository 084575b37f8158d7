package source

import (
	"regexp"
	"strconv"
	"strings"
)

var nonNumeric = regexp.MustCompile(`[^0-9,.\-]`)

// ParseTurkishFloat parses numbers formatted with a comma decimal separator,
// tolerating currency/percent suffixes and the unicode minus sign.
func ParseTurkishFloat(text string) (float64, bool) {
	s := strings.ReplaceAll(text, "−", "-")
	s = nonNumeric.ReplaceAllString(s, "")
	// "1.234,56" -> "1234.56"
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
