package catalog

import (
	"strconv"
	"strings"
)

// ParseNumber parses the micro-grammar's abbreviated numbers: plain
// decimals with optional commas and an optional k/m/b suffix
// ("50k" -> 50000, "1.5m" -> 1500000, "1b" -> 1000000000). Currency
// prefixes are tolerated.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'k':
		mult = 1e3
		s = s[:len(s)-1]
	case 'm':
		mult = 1e6
		s = s[:len(s)-1]
	case 'b':
		mult = 1e9
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}

// percentWords maps the micro-grammar's percent words to percentages.
var percentWords = map[string]float64{
	"half":           50,
	"third":          33.33,
	"quarter":        25,
	"all":            100,
	"everything":     100,
	"three-quarters": 75,
}

// ParsePercentWord parses percent words ("half" -> 50).
func ParsePercentWord(s string) (float64, bool) {
	v, ok := percentWords[strings.ToLower(strings.TrimSpace(s))]
	return v, ok
}
