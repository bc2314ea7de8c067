// Package jurisdiction maps free-text state and province names onto a closed
// set of jurisdiction codes. Codes leave this package only through Normalize,
// so downstream maps never mix names, codes and sentinels.
package jurisdiction

import (
	"sort"
	"strings"
)

// Code is a canonical two-letter US state or Canadian province code
type Code string

// Unknown is returned for anything that is not a recognized jurisdiction
const Unknown Code = "UNK"

// Country codes
const (
	CountryUS = "US"
	CountryCA = "CA"
)

type info struct {
	name    string
	country string
	ifta    bool
}

var table = map[Code]info{
	"AL": {"Alabama", CountryUS, true},
	"AK": {"Alaska", CountryUS, false},
	"AZ": {"Arizona", CountryUS, true},
	"AR": {"Arkansas", CountryUS, true},
	"CA": {"California", CountryUS, true},
	"CO": {"Colorado", CountryUS, true},
	"CT": {"Connecticut", CountryUS, true},
	"DE": {"Delaware", CountryUS, true},
	"DC": {"District of Columbia", CountryUS, true},
	"FL": {"Florida", CountryUS, true},
	"GA": {"Georgia", CountryUS, true},
	"HI": {"Hawaii", CountryUS, false},
	"ID": {"Idaho", CountryUS, true},
	"IL": {"Illinois", CountryUS, true},
	"IN": {"Indiana", CountryUS, true},
	"IA": {"Iowa", CountryUS, true},
	"KS": {"Kansas", CountryUS, true},
	"KY": {"Kentucky", CountryUS, true},
	"LA": {"Louisiana", CountryUS, true},
	"ME": {"Maine", CountryUS, true},
	"MD": {"Maryland", CountryUS, true},
	"MA": {"Massachusetts", CountryUS, true},
	"MI": {"Michigan", CountryUS, true},
	"MN": {"Minnesota", CountryUS, true},
	"MS": {"Mississippi", CountryUS, true},
	"MO": {"Missouri", CountryUS, true},
	"MT": {"Montana", CountryUS, true},
	"NE": {"Nebraska", CountryUS, true},
	"NV": {"Nevada", CountryUS, true},
	"NH": {"New Hampshire", CountryUS, true},
	"NJ": {"New Jersey", CountryUS, true},
	"NM": {"New Mexico", CountryUS, true},
	"NY": {"New York", CountryUS, true},
	"NC": {"North Carolina", CountryUS, true},
	"ND": {"North Dakota", CountryUS, true},
	"OH": {"Ohio", CountryUS, true},
	"OK": {"Oklahoma", CountryUS, true},
	"OR": {"Oregon", CountryUS, true},
	"PA": {"Pennsylvania", CountryUS, true},
	"RI": {"Rhode Island", CountryUS, true},
	"SC": {"South Carolina", CountryUS, true},
	"SD": {"South Dakota", CountryUS, true},
	"TN": {"Tennessee", CountryUS, true},
	"TX": {"Texas", CountryUS, true},
	"UT": {"Utah", CountryUS, true},
	"VT": {"Vermont", CountryUS, true},
	"VA": {"Virginia", CountryUS, true},
	"WA": {"Washington", CountryUS, true},
	"WV": {"West Virginia", CountryUS, true},
	"WI": {"Wisconsin", CountryUS, true},
	"WY": {"Wyoming", CountryUS, true},

	"AB": {"Alberta", CountryCA, true},
	"BC": {"British Columbia", CountryCA, true},
	"MB": {"Manitoba", CountryCA, true},
	"NB": {"New Brunswick", CountryCA, true},
	"NL": {"Newfoundland and Labrador", CountryCA, true},
	"NT": {"Northwest Territories", CountryCA, false},
	"NS": {"Nova Scotia", CountryCA, true},
	"NU": {"Nunavut", CountryCA, false},
	"ON": {"Ontario", CountryCA, true},
	"PE": {"Prince Edward Island", CountryCA, true},
	"QC": {"Quebec", CountryCA, true},
	"SK": {"Saskatchewan", CountryCA, true},
	"YT": {"Yukon", CountryCA, false},
}

// lookup holds lower-cased names, codes and aliases
var lookup = func() map[string]Code {
	m := make(map[string]Code, len(table)*2+len(aliases))
	for code, i := range table {
		m[strings.ToLower(string(code))] = code
		m[strings.ToLower(i.name)] = code
	}
	for alias, code := range aliases {
		m[alias] = code
	}
	return m
}()

var aliases = map[string]Code{
	"washington dc":       "DC",
	"washington, dc":      "DC",
	"washington d.c.":     "DC",
	"d.c.":                "DC",
	"newfoundland":        "NL",
	"labrador":            "NL",
	"pei":                 "PE",
	"québec":              "QC",
	"yukon territory":     "YT",
	"northwest territory": "NT",
	"nwt":                 "NT",
}

// Normalize maps a state/province name or code to its canonical Code.
// Matching is case-insensitive and ignores surrounding whitespace; anything
// unrecognized, including the "Unknown" sentinel, yields Unknown.
func Normalize(s string) Code {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return Unknown
	}
	if code, ok := lookup[key]; ok {
		return code
	}
	return Unknown
}

// Valid reports whether c is a recognized jurisdiction
func (c Code) Valid() bool {
	_, ok := table[c]
	return ok
}

// IsIFTA reports whether c is an IFTA member jurisdiction
func (c Code) IsIFTA() bool {
	return table[c].ifta
}

// Country returns "US" or "CA", or "" for Unknown
func (c Code) Country() string {
	return table[c].country
}

// Name returns the full jurisdiction name
func (c Code) Name() string {
	if i, ok := table[c]; ok {
		return i.name
	}
	return "Unknown"
}

func (c Code) String() string {
	return string(c)
}

// UnmarshalText normalizes textual input, so JSON and YAML decoding can only
// ever produce canonical codes.
func (c *Code) UnmarshalText(text []byte) error {
	*c = Normalize(string(text))
	return nil
}

// All returns every known jurisdiction sorted by code
func All() []Code {
	codes := make([]Code, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
