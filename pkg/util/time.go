package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDuration converts time.Duration to ffmpeg timestamp format
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}

// FormatSeconds renders seconds as a plain decimal with the given precision,
// e.g. FormatSeconds(5, 4) == "5.0000".
func FormatSeconds(seconds float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	return strconv.FormatFloat(seconds, 'f', precision, 64)
}

// Seconds converts fractional seconds to a time.Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1")
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
