package utils

import (
	"strconv"
	"strings"
	"time"
)

// ArtifactTimestampLayout stamps persisted artifact names.
const ArtifactTimestampLayout = "20060102_150405"

const (
	fileSizeStep         = 1024
	fractionalSizeBelow  = 10
	redundantFraction    = ".0"
	fractionalPrecision  = 1
	wholeNumberPrecision = 0
)

var fileSizeUnits = [...]string{"b", "kb", "mb", "gb", "tb", "pb"}

// FormatFileSize renders a byte count with a lower-case binary unit, keeping one decimal below ten units.
func FormatFileSize(byteCount int64) string {
	if byteCount < fileSizeStep {
		return strconv.FormatInt(max(byteCount, 0), 10) + fileSizeUnits[0]
	}
	scaled := float64(byteCount)
	unitIndex := 0
	for scaled >= fileSizeStep && unitIndex < len(fileSizeUnits)-1 {
		scaled /= fileSizeStep
		unitIndex++
	}
	precision := wholeNumberPrecision
	if scaled < fractionalSizeBelow {
		precision = fractionalPrecision
	}
	formatted := strconv.FormatFloat(scaled, 'f', precision, 64)
	return strings.TrimSuffix(formatted, redundantFraction) + fileSizeUnits[unitIndex]
}

// FormatArtifactTimestamp renders value in local time, or the empty string for the zero time.
func FormatArtifactTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Local().Format(ArtifactTimestampLayout)
}
