// Package occurrence turns GBIF occurrence columns into validated point records.
package occurrence

import "time"

// UnknownTime is the EpochTime of a record whose date parts do not form a
// valid Gregorian date. It is not a timestamp.
const UnknownTime int64 = -1

// Date part defaults for null year, month and day values.
const (
	DefaultYear  int64 = 1970
	DefaultMonth int64 = 1
	DefaultDay   int64 = 1
)

// GBIF Darwin Core column names read by Materialize.
const (
	ColumnLatitude  = "decimalLatitude"
	ColumnLongitude = "decimalLongitude"
	ColumnYear      = "year"
	ColumnMonth     = "month"
	ColumnDay       = "day"
)

// Columns lists every column Materialize reads.
var Columns = []string{ColumnLatitude, ColumnLongitude, ColumnYear, ColumnMonth, ColumnDay}

// Year bounds accepted by Epoch.
const (
	minYear = -262143
	maxYear = 262142
)

// Occurrence is one sighting with usable coordinates.
type Occurrence struct {
	Latitude  float64 `json:"decimal_latitude"`
	Longitude float64 `json:"decimal_longitude"`
	Year      int64   `json:"year"`
	Month     int64   `json:"month"`
	Day       int64   `json:"day"`
	EpochTime int64   `json:"epoch_time"`
}

// HasKnownTime reports whether the record carries a real timestamp.
func (o Occurrence) HasKnownTime() bool {
	return o.EpochTime != UnknownTime
}

// Epoch returns the Unix seconds of midnight UTC on the given date, or
// UnknownTime when the parts do not name a real calendar day.
func Epoch(year, month, day int64) int64 {
	if year < minYear || year > maxYear || month < 1 || month > 12 || day < 1 || day > 31 {
		return UnknownTime
	}
	t := time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 1), so a mismatch means invalid.
	if int64(t.Year()) != year || int64(t.Month()) != month || int64(t.Day()) != day {
		return UnknownTime
	}
	return t.Unix()
}
