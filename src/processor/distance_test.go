package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEuclideanDistance(t *testing.T) {
	assert.Equal(t, 5.0, EuclideanDistance(0, 0, 3, 4))
	assert.Equal(t, 0.0, EuclideanDistance(40.0, -73.9, 40.0, -73.9))
}

func TestPairwiseDistances(t *testing.T) {
	stations := []Station{
		{StationID: "A", Latitude: 0, Longitude: 0},
		{StationID: "B", Latitude: 0, Longitude: 3},
		{StationID: "C", Latitude: 4, Longitude: 0},
	}

	matrix := PairwiseDistances(stations)

	assert.Equal(t, 0.0, matrix[0][0])
	assert.Equal(t, 3.0, matrix[0][1])
	assert.Equal(t, 4.0, matrix[0][2])
	assert.Equal(t, 5.0, matrix[1][2])
	// 对称
	assert.Equal(t, matrix[1][0], matrix[0][1])
	assert.Equal(t, matrix[2][1], matrix[1][2])
}

func TestNearestStation(t *testing.T) {
	stations := []Station{
		{StationID: "A", Latitude: 0, Longitude: 0},
		{StationID: "B", Latitude: 0, Longitude: 3},
		{StationID: "C", Latitude: 4, Longitude: 0},
	}
	matrix := PairwiseDistances(stations)

	assert.Equal(t, 1, NearestStation(0, matrix))
	assert.Equal(t, 0, NearestStation(1, matrix))
	assert.Equal(t, 0, NearestStation(2, matrix))

	assert.Equal(t, -1, NearestStation(0, nil))
	assert.Equal(t, -1, NearestStation(9, matrix))
}

func TestNormalizedDeviationScores(t *testing.T) {
	durations := []float64{10, 10, 10, 100}
	distances := []float64{2, 2, 2, 20}

	scores := NormalizedDeviationScores(durations, distances)

	assert.Len(t, scores, 4)
	assert.Equal(t, 1.0, scores[3], "最偏离的点得分应为1")
	assert.Equal(t, 0.0, scores[0])
}

func TestNormalizedDeviationScoresUniform(t *testing.T) {
	scores := NormalizedDeviationScores([]float64{5, 5, 5}, []float64{1, 1, 1})
	assert.Equal(t, []float64{0, 0, 0}, scores)
}
