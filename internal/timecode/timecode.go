// Package timecode converts between second offsets and subtitle timestamps
// of the form HH:MM:SS,mmm.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"audiobaked/internal/apperr"
)

// Format renders seconds as HH:MM:SS,mmm. Hours grow past two digits as
// needed. Milliseconds are rounded independently of the other fields and
// never carried into seconds; a rounded value of 1000 is held at 999.
func Format(seconds float64) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "", apperr.Input("time offset must be finite, got %v", seconds)
	}
	if seconds < 0 {
		return "", apperr.Input("time offset must be non-negative, got %v", seconds)
	}

	hrs := int64(math.Floor(seconds / 3600))
	mins := int64(math.Floor(math.Mod(seconds, 3600) / 60))
	secs := int64(math.Floor(math.Mod(seconds, 60)))
	millis := int64(math.Round((seconds - math.Floor(seconds)) * 1000))
	if millis > 999 {
		millis = 999
	}

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hrs, mins, secs, millis), nil
}

// Parse is the inverse of Format to millisecond precision. It also accepts
// a '.' millisecond separator.
func Parse(value string) (float64, error) {
	value = strings.TrimSpace(value)
	value = strings.Replace(value, ".", ",", 1)

	clock, fraction, ok := strings.Cut(value, ",")
	if !ok || len(fraction) != 3 {
		return 0, apperr.Input("invalid timestamp %q", value)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, apperr.Input("invalid timestamp %q", value)
	}

	var fields [4]int64
	for i, part := range append(parts, fraction) {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0, apperr.Input("invalid timestamp %q", value)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, apperr.Input("invalid timestamp %q", value)
	}

	totalMillis := ((fields[0]*60+fields[1])*60+fields[2])*1000 + fields[3]
	return float64(totalMillis) / 1000, nil
}

// Span renders "start --> end" for a subtitle block.
func Span(start, end float64) (string, error) {
	if end < start {
		return "", apperr.Input("segment end %v precedes start %v", end, start)
	}
	from, err := Format(start)
	if err != nil {
		return "", err
	}
	to, err := Format(end)
	if err != nil {
		return "", err
	}
	return from + " --> " + to, nil
}
