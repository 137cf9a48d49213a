package status

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		expected Key
	}{
		{"69.99 is cold", 69.99, KeyCold},
		{"70.0 is normal", 70.0, KeyNormal},
		{"80.99 is normal", 80.99, KeyNormal},
		{"81.0 is above target", 81.0, KeyAboveTarget},
		{"89.99 is above target", 89.99, KeyAboveTarget},
		{"90.0 is critical hot", 90.0, KeyCriticalHot},
		{"far below freezing is cold", -20, KeyCold},
		{"very hot is critical", 140, KeyCriticalHot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(ptr(tt.temp)).Key)
			assert.Equal(t, tt.expected, ClassifyValue(tt.temp).Key)
		})
	}
}

func TestClassify_NoData(t *testing.T) {
	assert.Equal(t, NoData, Classify(nil))
	assert.Equal(t, NoData, ClassifyValue(math.NaN()))
	assert.Equal(t, NoData, ClassifyValue(math.Inf(1)))
	assert.Equal(t, NoData, ClassifyString("warm"))
	assert.Equal(t, NoData, ClassifyString(""))
}

func TestClassifyString_Numeric(t *testing.T) {
	assert.Equal(t, Normal, ClassifyString(" 72.5 "))
	assert.Equal(t, CriticalHot, ClassifyString("92"))
}

func TestStatus_AlertFlags(t *testing.T) {
	assert.True(t, Cold.IsAlert())
	assert.True(t, CriticalHot.IsAlert())
	assert.False(t, AboveTarget.IsAlert())
	assert.Equal(t, AlertWarning, AboveTarget.Alert)
	assert.False(t, Normal.IsAlert())
	assert.False(t, NoData.IsAlert())
}

func TestStatus_Labels(t *testing.T) {
	assert.Equal(t, "Cold", Cold.Label)
	assert.Equal(t, "Normal", Normal.Label)
	assert.Equal(t, "Above Target", AboveTarget.Label)
	assert.Equal(t, "Critical Hot", CriticalHot.Label)
	assert.Equal(t, "No Data", NoData.Label)
}

func TestParseKey(t *testing.T) {
	k, ok := ParseKey("Critical")
	assert.True(t, ok)
	assert.Equal(t, KeyCriticalHot, k)

	_, ok = ParseKey("lukewarm")
	assert.False(t, ok)
}
