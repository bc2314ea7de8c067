package gps

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"

	"github.com/jengzang/ifta-backend-go/internal/service"
)

// Decoder turns a stream of NMEA sentences into raw fixes. RMC sentences
// carry the date; GGA sentences borrow it from the last RMC seen.
type Decoder struct {
	// Now supplies the date for GGA sentences that arrive before any RMC.
	Now func() time.Time

	date   nmea.Date
	tod    time.Duration // time of day of the last RMC
	lastTs int64
}

// NewDecoder creates a decoder
func NewDecoder() *Decoder {
	return &Decoder{Now: time.Now}
}

// ParseSentence decodes a single RMC or GGA sentence. ok is false for
// sentences that carry no usable position.
func ParseSentence(line string) (fix service.RawFix, ok bool, err error) {
	return NewDecoder().Decode(line)
}

// Decode parses one line. Unsupported sentence types, invalid fixes and a
// repeat of the previous timestamp yield ok == false without an error.
func (d *Decoder) Decode(line string) (fix service.RawFix, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !wanted(line) {
		return service.RawFix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return service.RawFix{}, false, fmt.Errorf("failed to parse nmea sentence: %w", err)
	}

	var ts time.Time
	switch s := sentence.(type) {
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC || !s.Date.Valid || !s.Time.Valid {
			return service.RawFix{}, false, nil
		}
		d.date = s.Date
		d.tod = timeOfDay(s.Time)
		ts = at(s.Date, s.Time)
		fix = service.RawFix{Latitude: s.Latitude, Longitude: s.Longitude}

	case nmea.GGA:
		if s.FixQuality == nmea.Invalid || !s.Time.Valid {
			return service.RawFix{}, false, nil
		}
		ts = d.ggaTime(s.Time)
		fix = service.RawFix{Latitude: s.Latitude, Longitude: s.Longitude}

	default:
		return service.RawFix{}, false, nil
	}

	fix.TimestampMs = ts.UnixMilli()
	if fix.TimestampMs == d.lastTs {
		return service.RawFix{}, false, nil
	}
	d.lastTs = fix.TimestampMs
	return fix, true, nil
}

func (d *Decoder) ggaTime(t nmea.Time) time.Time {
	if !d.date.Valid {
		now := time.Now
		if d.Now != nil {
			now = d.Now
		}
		y, m, day := now().UTC().Date()
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC).Add(timeOfDay(t))
	}

	// a GGA just past midnight still carries yesterday's RMC date
	ts := at(d.date, t)
	if d.tod-timeOfDay(t) > 12*time.Hour {
		ts = ts.AddDate(0, 0, 1)
	}
	return ts
}

// wanted reports whether line is an RMC or GGA sentence from any talker
func wanted(line string) bool {
	if len(line) < 7 || (line[0] != '$' && line[0] != '!') {
		return false
	}
	switch line[3:6] {
	case nmea.TypeRMC, nmea.TypeGGA:
		return true
	}
	return false
}

func timeOfDay(t nmea.Time) time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Millisecond)*time.Millisecond
}

func at(d nmea.Date, t nmea.Time) time.Time {
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD, 0, 0, 0, 0, time.UTC).Add(timeOfDay(t))
}
