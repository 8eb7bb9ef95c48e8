package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	stats := Describe([]float64{1, 2, 3, 4, 5})

	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 3.0, stats.Mean)
	assert.Equal(t, 3.0, stats.Median)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 5.0, stats.Max)
	assert.Equal(t, 2.0, stats.P25)
	assert.Equal(t, 4.0, stats.P75)
	// 总体标准差，除以N
	assert.InDelta(t, math.Sqrt(2), stats.Std, 1e-9)
}

func TestDescribeEmpty(t *testing.T) {
	stats := Describe(nil)

	assert.Equal(t, 0, stats.Count)
	assert.True(t, math.IsNaN(stats.Mean))
	assert.True(t, math.IsNaN(stats.Median))
	assert.True(t, math.IsNaN(stats.Std))
	assert.True(t, math.IsNaN(stats.Min))
	assert.True(t, math.IsNaN(stats.Max))
}

func TestDescribeIgnoresNaN(t *testing.T) {
	stats := Describe([]float64{1, math.NaN(), 3, math.NaN(), 5})

	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 3.0, stats.Mean)
	assert.Equal(t, 5.0, stats.Max)
}

func TestPercentilesLinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	result := Percentiles(values, []float64{0, 50, 100})

	assert.Equal(t, 1.0, result[0])
	assert.Equal(t, 2.5, result[50])
	assert.Equal(t, 4.0, result[100])
}

func TestIQROutliersKnownQuartiles(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}

	mask, bounds := IQROutliers(values, 1.5)

	assert.Equal(t, 3.25, bounds.Q1)
	assert.Equal(t, 7.75, bounds.Q3)
	assert.Equal(t, 4.5, bounds.IQR)
	assert.Equal(t, -3.5, bounds.Lower)
	assert.Equal(t, 14.5, bounds.Upper)

	for i := 0; i < 9; i++ {
		assert.False(t, mask[i], "值 %v 不应被标记", values[i])
	}
	assert.True(t, mask[9], "100 应是唯一的离群值")
}

func TestIQROutliersPreservesNaNPositions(t *testing.T) {
	values := []float64{1, math.NaN(), 2, 3, 4, 5, 6, 7, 8, 9, 100}

	mask, _ := IQROutliers(values, 1.5)

	assert.Len(t, mask, len(values))
	assert.False(t, mask[1], "NaN位置必须保持false")
	assert.True(t, mask[10])
}

func TestZScoreOutliers(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 1000}

	mask, scores := ZScoreOutliers(values, 2.0)

	assert.True(t, mask[9])
	assert.Greater(t, scores[9], 2.0)
	for i := 0; i < 9; i++ {
		assert.False(t, mask[i])
	}
}

func TestZScoreOutliersZeroStd(t *testing.T) {
	values := []float64{5, 5, 5, 5}

	mask, scores := ZScoreOutliers(values, 3.0)

	for i := range values {
		assert.False(t, mask[i])
		assert.Zero(t, scores[i])
	}
}

func TestZScoreOutliersEmpty(t *testing.T) {
	mask, scores := ZScoreOutliers(nil, 3.0)
	assert.Empty(t, mask)
	assert.Empty(t, scores)
}
