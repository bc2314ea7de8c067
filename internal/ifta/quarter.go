package ifta

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quarter is a calendar quarter, the IFTA reporting period
type Quarter struct {
	Year   int `json:"year"`
	Number int `json:"quarter"`
}

// NewQuarter validates and builds a quarter
func NewQuarter(year, number int) (Quarter, error) {
	if number < 1 || number > 4 {
		return Quarter{}, fmt.Errorf("quarter must be between 1 and 4, got %d", number)
	}
	if year < 1970 || year > 9999 {
		return Quarter{}, fmt.Errorf("invalid year: %d", year)
	}
	return Quarter{Year: year, Number: number}, nil
}

// QuarterOf returns the quarter containing t, evaluated in UTC
func QuarterOf(t time.Time) Quarter {
	t = t.UTC()
	return Quarter{Year: t.Year(), Number: (int(t.Month())-1)/3 + 1}
}

// ParseQuarter parses "2025-Q1", "Q1 2025" or "2025Q1"
func ParseQuarter(s string) (Quarter, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "/", " ").Replace(norm)

	var yearPart, qPart string
	fields := strings.Fields(norm)
	switch len(fields) {
	case 1:
		idx := strings.Index(fields[0], "Q")
		if idx < 0 {
			return Quarter{}, fmt.Errorf("invalid quarter: %q", s)
		}
		yearPart, qPart = fields[0][:idx], fields[0][idx:]
	case 2:
		if strings.HasPrefix(fields[0], "Q") {
			qPart, yearPart = fields[0], fields[1]
		} else {
			yearPart, qPart = fields[0], fields[1]
		}
	default:
		return Quarter{}, fmt.Errorf("invalid quarter: %q", s)
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Quarter{}, fmt.Errorf("invalid quarter year %q: %w", yearPart, err)
	}
	number, err := strconv.Atoi(strings.TrimPrefix(qPart, "Q"))
	if err != nil {
		return Quarter{}, fmt.Errorf("invalid quarter number %q: %w", qPart, err)
	}
	return NewQuarter(year, number)
}

// Start returns the first instant of the quarter in UTC
func (q Quarter) Start() time.Time {
	return time.Date(q.Year, time.Month((q.Number-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last millisecond of the quarter in UTC
func (q Quarter) End() time.Time {
	return q.Next().Start().Add(-time.Millisecond)
}

// Range returns the inclusive [start, end] bounds as Unix milliseconds
func (q Quarter) Range() (int64, int64) {
	return q.Start().UnixMilli(), q.End().UnixMilli()
}

// Contains reports whether t falls inside the quarter
func (q Quarter) Contains(t time.Time) bool {
	return QuarterOf(t) == q
}

// Next returns the following quarter
func (q Quarter) Next() Quarter {
	if q.Number == 4 {
		return Quarter{Year: q.Year + 1, Number: 1}
	}
	return Quarter{Year: q.Year, Number: q.Number + 1}
}

// Previous returns the preceding quarter
func (q Quarter) Previous() Quarter {
	if q.Number == 1 {
		return Quarter{Year: q.Year - 1, Number: 4}
	}
	return Quarter{Year: q.Year, Number: q.Number - 1}
}

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d %d", q.Number, q.Year)
}
