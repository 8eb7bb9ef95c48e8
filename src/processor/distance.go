package processor

import "math"

// 站点距离工具。平面近似：直接对经纬度差做欧氏距离，
// 不做球面建模，只用于站点间相对远近比较。

// EuclideanDistance 两点间平面欧氏距离(经纬度坐标差)
func EuclideanDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dlat := lat2 - lat1
	dlon := lon2 - lon1
	return math.Sqrt(dlat*dlat + dlon*dlon)
}

// PairwiseDistances 全站点两两距离矩阵(对称，主对角线为0)
func PairwiseDistances(stations []Station) [][]float64 {
	n := len(stations)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := EuclideanDistance(
				stations[i].Latitude, stations[i].Longitude,
				stations[j].Latitude, stations[j].Longitude,
			)
			matrix[i][j] = d
			matrix[j][i] = d
		}
	}
	return matrix
}

// NearestStation 在距离矩阵中查离指定站点最近的站点下标(排除自身)
// 矩阵小于两行时返回-1
func NearestStation(fromIdx int, matrix [][]float64) int {
	if len(matrix) < 2 || fromIdx < 0 || fromIdx >= len(matrix) {
		return -1
	}
	best, bestDist := -1, math.Inf(1)
	for j, d := range matrix[fromIdx] {
		if j == fromIdx {
			continue
		}
		if d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// NormalizedDeviationScores 按(时长,距离)二维偏离均值的程度给每条骑行打分，
// 分数归一化到[0,1]；全部点重合时返回全0
func NormalizedDeviationScores(durations, distances []float64) []float64 {
	n := len(durations)
	scores := make([]float64, n)
	if n == 0 {
		return scores
	}

	durStats := Describe(durations)
	distStats := Describe(distances)
	durStd, distStd := durStats.Std, distStats.Std
	if durStd == 0 {
		durStd = 1
	}
	if distStd == 0 {
		distStd = 1
	}

	for i := 0; i < n; i++ {
		dx := (durations[i] - durStats.Mean) / durStd
		dy := (distances[i] - distStats.Mean) / distStd
		scores[i] = math.Sqrt(dx*dx + dy*dy)
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	if hi == lo {
		return make([]float64, n)
	}
	for i := range scores {
		scores[i] = (scores[i] - lo) / (hi - lo)
	}
	return scores
}
