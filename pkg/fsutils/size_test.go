package fsutils

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestGetSizeShortText(t *testing.T) {
	const (
		kb = int64(1024)
		mb = kb * 1024
		gb = mb * 1024
		tb = gb * 1024
	)
	for _, tt := range []struct {
		name     string
		size     int64
		expected string
	}{
		{"zero", 0, "0B"},
		{"negative", -5, "0B"},
		{"bytes", 500, "500B"},
		{"last_byte", kb - 1, "1023B"},
		{"one_kb", kb, "1KB"},
		{"rounds_down", kb + kb/2 - 1, "1KB"},
		{"rounds_half_up", kb + kb/2, "2KB"},
		{"kb_rounds_into_mb", mb - 1, "1MB"},
		{"one_and_half_mb", mb + mb/2, "2MB"},
		{"mb_rounds_into_gb", gb - mb/2, "1GB"},
		{"one_tb", tb, "1TB"},
		{"tb_is_the_last_unit", 1024 * tb, "1024TB"},
		{"tb_rounding_stays_in_tb", 1024*tb - tb/2, "1024TB"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetSizeShortText(tt.size))
		})
	}
}
