package fsutils

import "strconv"

var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// GetSizeShortText formats size in the largest binary unit that keeps the
// value under 1024, rounded to the nearest whole number. TB is the largest
// unit. Sizes below zero read as 0B.
func GetSizeShortText(size int64) string {
	if size <= 0 {
		return "0B"
	}
	last := len(sizeUnits) - 1
	unit, div := 0, int64(1)
	for unit < last && size >= div*1024 {
		div *= 1024
		unit++
	}
	val := (size + div/2) / div
	if val >= 1024 && unit < last {
		val /= 1024
		unit++
	}
	return strconv.FormatInt(val, 10) + sizeUnits[unit]
}
