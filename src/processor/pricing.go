package processor

import (
	"fmt"
	"strings"
	"time"

	"CityBikeAnalytics/src/utils"
)

// 计价策略。四种策略共用一个接口，按名称从工厂获取；
// 费率常数与线上计费口径一致，所有结果保留两位小数。

// PricingStrategy 单次骑行计价接口
type PricingStrategy interface {
	CalculateFare(durationMinutes, distanceKm float64, bikeType BikeType, timeOfDay time.Time) float64
	Name() string
	Description() string
}

// CasualPricing 散客计价：€0.30/分钟，电单车加价20%，保底€2.00
type CasualPricing struct{}

func (CasualPricing) CalculateFare(durationMinutes, _ float64, bikeType BikeType, _ time.Time) float64 {
	fare := durationMinutes * 0.30
	if bikeType == BikeElectric {
		fare *= 1.20
	}
	if fare < 2.00 {
		fare = 2.00
	}
	return utils.Round2(fare)
}

func (CasualPricing) Name() string { return "Casual Pricing" }

func (CasualPricing) Description() string { return "€0.30/min (min €2.00)" }

// MemberPricing 会员计价：45分钟内免费，超时部分€0.18/分钟，
// 电单车加价10%，超时后保底€1.00
type MemberPricing struct{}

func (MemberPricing) CalculateFare(durationMinutes, _ float64, bikeType BikeType, _ time.Time) float64 {
	const freeMinutes = 45.0
	if durationMinutes <= freeMinutes {
		return 0
	}
	fare := (durationMinutes - freeMinutes) * 0.18
	if bikeType == BikeElectric {
		fare *= 1.10
	}
	if fare < 1.00 {
		fare = 1.00
	}
	return utils.Round2(fare)
}

func (MemberPricing) Name() string { return "Member Pricing" }

func (MemberPricing) Description() string { return "Free 45min, then €0.18/min" }

// PeakHourPricing 高峰计价：€0.25/分钟，早晚高峰(8点、17点、18点)乘1.5，
// 电单车乘1.15，保底€1.50
type PeakHourPricing struct{}

var peakHours = map[int]bool{8: true, 17: true, 18: true}

func (PeakHourPricing) CalculateFare(durationMinutes, _ float64, bikeType BikeType, timeOfDay time.Time) float64 {
	fare := durationMinutes * 0.25
	if peakHours[timeOfDay.Hour()] {
		fare *= 1.5
	}
	if bikeType == BikeElectric {
		fare *= 1.15
	}
	if fare < 1.50 {
		fare = 1.50
	}
	return utils.Round2(fare)
}

func (PeakHourPricing) Name() string { return "Peak-Hour Dynamic Pricing" }

func (PeakHourPricing) Description() string { return "€0.25/min (x1.5 during 8-9am, 5-7pm)" }

// DistancePricing 里程计价：€0.80/公里，无里程时退化为€0.15/分钟，
// 电单车乘1.25，保底€2.50
type DistancePricing struct{}

func (DistancePricing) CalculateFare(durationMinutes, distanceKm float64, bikeType BikeType, _ time.Time) float64 {
	var fare float64
	if distanceKm <= 0 {
		fare = durationMinutes * 0.15
	} else {
		fare = distanceKm * 0.80
	}
	if bikeType == BikeElectric {
		fare *= 1.25
	}
	if fare < 2.50 {
		fare = 2.50
	}
	return utils.Round2(fare)
}

func (DistancePricing) Name() string { return "Distance-Based Pricing" }

func (DistancePricing) Description() string { return "€0.80/km (min €2.50)" }

// NewPricingStrategy 按名称创建计价策略
func NewPricingStrategy(name string) (PricingStrategy, error) {
	switch strings.ToLower(name) {
	case "casual":
		return CasualPricing{}, nil
	case "member":
		return MemberPricing{}, nil
	case "peak_hour":
		return PeakHourPricing{}, nil
	case "distance":
		return DistancePricing{}, nil
	}
	return nil, fmt.Errorf("未知计价策略 %q，可选: casual, member, peak_hour, distance", name)
}

// PricingStrategies 全部可用策略及说明
func PricingStrategies() map[string]string {
	all := []PricingStrategy{CasualPricing{}, MemberPricing{}, PeakHourPricing{}, DistancePricing{}}
	result := make(map[string]string, len(all))
	for _, s := range all {
		result[s.Name()] = s.Description()
	}
	return result
}

// BatchFares 批量估算费用：时长费与里程费取较大者，保底€2.00，两位小数
// 两个切片按位置对齐，长度取较短者
func BatchFares(durations, distances []float64, ratePerMinute, ratePerKm float64) []float64 {
	n := len(durations)
	if len(distances) < n {
		n = len(distances)
	}
	fares := make([]float64, n)
	for i := 0; i < n; i++ {
		fare := durations[i] * ratePerMinute
		if d := distances[i] * ratePerKm; d > fare {
			fare = d
		}
		if fare < 2.00 {
			fare = 2.00
		}
		fares[i] = utils.Round2(fare)
	}
	return fares
}
