package processor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// 数值统计工具。全部是纯函数：入参切片不被修改，NaN一律剔除后计算，
// 掩码类结果与原始切片按位置对齐。

// Stats 描述性统计结果
type Stats struct {
	Count  int
	Mean   float64
	Median float64
	Std    float64 // 总体标准差(除以N)
	Min    float64
	Max    float64
	P25    float64
	P75    float64
	P90    float64
}

// Bounds IQR离群值边界
type Bounds struct {
	Q1    float64
	Q3    float64
	IQR   float64
	Lower float64
	Upper float64
}

// Describe 计算描述性统计。空输入(或全NaN)返回Count=0、其余字段NaN，不报错
func Describe(values []float64) Stats {
	clean := dropNaN(values)
	if len(clean) == 0 {
		nan := math.NaN()
		return Stats{Count: 0, Mean: nan, Median: nan, Std: nan,
			Min: nan, Max: nan, P25: nan, P75: nan, P90: nan}
	}

	sorted := append([]float64(nil), clean...)
	sort.Float64s(sorted)

	return Stats{
		Count:  len(clean),
		Mean:   stat.Mean(clean, nil),
		Median: percentileSorted(sorted, 50),
		Std:    stat.PopStdDev(clean, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		P25:    percentileSorted(sorted, 25),
		P75:    percentileSorted(sorted, 75),
		P90:    percentileSorted(sorted, 90),
	}
}

// Percentiles 按线性插值计算一组百分位数
func Percentiles(values []float64, ps []float64) map[float64]float64 {
	clean := dropNaN(values)
	sorted := append([]float64(nil), clean...)
	sort.Float64s(sorted)

	result := make(map[float64]float64, len(ps))
	for _, p := range ps {
		result[p] = percentileSorted(sorted, p)
	}
	return result
}

// IQROutliers 用IQR法标记离群值
// 边界为 [Q1 - multiplier*IQR, Q3 + multiplier*IQR]，严格越界才算离群；
// NaN不参与边界计算，掩码对应位置恒为false
func IQROutliers(values []float64, multiplier float64) ([]bool, Bounds) {
	clean := dropNaN(values)
	sorted := append([]float64(nil), clean...)
	sort.Float64s(sorted)

	q1 := percentileSorted(sorted, 25)
	q3 := percentileSorted(sorted, 75)
	iqr := q3 - q1
	bounds := Bounds{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - multiplier*iqr,
		Upper: q3 + multiplier*iqr,
	}

	mask := make([]bool, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		mask[i] = v < bounds.Lower || v > bounds.Upper
	}
	return mask, bounds
}

// ZScoreOutliers 用Z分数法标记离群值
// 标准差为0时返回全false掩码和全0分数，避免除零
func ZScoreOutliers(values []float64, threshold float64) ([]bool, []float64) {
	mask := make([]bool, len(values))
	scores := make([]float64, len(values))

	clean := dropNaN(values)
	if len(clean) == 0 {
		return mask, scores
	}

	mean := stat.Mean(clean, nil)
	std := stat.PopStdDev(clean, nil)
	if std == 0 {
		return mask, scores
	}

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		z := (v - mean) / std
		scores[i] = z
		mask[i] = math.Abs(z) > threshold
	}
	return mask, scores
}

// percentileSorted 已排序切片上的线性插值百分位数(位置 p/100*(n-1))
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		return sorted[0]
	}
	if hi >= n {
		return sorted[n-1]
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func dropNaN(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	return clean
}
