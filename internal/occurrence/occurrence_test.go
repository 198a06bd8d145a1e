package occurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEpoch(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day int64
		want             int64
	}{
		{"unix epoch", 1970, 1, 1, 0},
		{"leap day", 2024, 2, 29, 1709164800},
		{"feb 30", 2024, 2, 30, UnknownTime},
		{"non-leap feb 29", 2023, 2, 29, UnknownTime},
		{"century non-leap", 1900, 2, 29, UnknownTime},
		{"quad-century leap", 2000, 2, 29, 951782400},
		{"month 13", 2020, 13, 1, UnknownTime},
		{"month 0", 2020, 0, 1, UnknownTime},
		{"day 32", 2020, 1, 32, UnknownTime},
		{"day 0", 2020, 1, 0, UnknownTime},
		{"april 31", 2021, 4, 31, UnknownTime},
		{"before 1970", 1969, 12, 31, -86400},
		{"year out of range", 1 << 40, 1, 1, UnknownTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Epoch(tt.year, tt.month, tt.day))
		})
	}
}

func TestOccurrence_HasKnownTime(t *testing.T) {
	assert.True(t, Occurrence{EpochTime: 0}.HasKnownTime())
	assert.False(t, Occurrence{EpochTime: UnknownTime}.HasKnownTime())
}
