package processor

import (
	"sort"

	"CityBikeAnalytics/src/utils"
)

// 业务分析引擎。十四个查询全部是清洗后三张表的纯函数，
// 查询之间不共享可变状态，空表一律返回零值结果而不是报错。

const (
	DefaultTopStations    = 10
	DefaultTopUsers       = 15
	DefaultTopRoutes      = 10
	DefaultTopMaintenance = 10
)

// Analytics 在三张只读清洗表上执行固定问题集
type Analytics struct {
	tables Tables

	StationLimit     int // 热门站点榜单长度
	UserLimit        int // 活跃用户榜单长度
	RouteLimit       int // 热门路线榜单长度
	MaintenanceLimit int // 维保频次榜单长度
}

// NewAnalytics 创建分析引擎，榜单长度用默认值，可在调用前覆盖
func NewAnalytics(t Tables) *Analytics {
	return &Analytics{
		tables:           t,
		StationLimit:     DefaultTopStations,
		UserLimit:        DefaultTopUsers,
		RouteLimit:       DefaultTopRoutes,
		MaintenanceLimit: DefaultTopMaintenance,
	}
}

// TripSummary 问题1：骑行总量概览
type TripSummary struct {
	TotalTrips         int     `json:"total_trips"`
	TotalDistanceKm    float64 `json:"total_distance_km"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
}

// StationCount 站点与其出现次数
type StationCount struct {
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	Count       int    `json:"count"`
}

// PopularStations 问题2：热门起点/终点站榜单
type PopularStations struct {
	Start []StationCount `json:"start"`
	End   []StationCount `json:"end"`
}

// PeakDay 问题4：骑行量最高的日期
type PeakDay struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

// BikeUtilization 问题6：车辆利用率
type BikeUtilization struct {
	DistinctBikes  int     `json:"distinct_bikes"`
	DateRangeDays  int     `json:"date_range_days"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// UserCount 用户与其骑行次数
type UserCount struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

// RouteCount 问题10：有向路线与其骑行次数
type RouteCount struct {
	StartStationID   string `json:"start_station_id"`
	EndStationID     string `json:"end_station_id"`
	StartStationName string `json:"start_station_name"`
	EndStationName   string `json:"end_station_name"`
	Count            int    `json:"count"`
}

// CompletionRate 问题11：完成率
type CompletionRate struct {
	Completed int     `json:"completed"`
	Cancelled int     `json:"cancelled"`
	Total     int     `json:"total"`
	RatePct   float64 `json:"rate_pct"`
}

// TripsPerUser 问题12：人均骑行次数
type TripsPerUser struct {
	Overall    float64            `json:"overall"`
	ByUserType map[string]float64 `json:"by_user_type"`
}

// BikeMaintCount 问题13：车辆与其维保次数
type BikeMaintCount struct {
	BikeID string `json:"bike_id"`
	Count  int    `json:"count"`
}

// OutlierTrip 问题14结果中的单条异常骑行
type OutlierTrip struct {
	TripID          string  `json:"trip_id"`
	DurationMinutes float64 `json:"duration_minutes"`
	DistanceKm      float64 `json:"distance_km"`
}

// OutlierTrips 问题14：IQR法标记的异常骑行
type OutlierTrips struct {
	Total          int           `json:"total"`
	DurationBounds Bounds        `json:"duration_bounds"`
	DistanceBounds Bounds        `json:"distance_bounds"`
	Trips          []OutlierTrip `json:"trips"` // 按原表顺序最多前20条
}

// TripSummary 问题1：总次数、总距离、平均时长(后两者保留两位小数)
func (a *Analytics) TripSummary() TripSummary {
	trips := a.tables.Trips
	if len(trips) == 0 {
		return TripSummary{}
	}
	var dist, dur float64
	for _, t := range trips {
		dist += t.DistanceKm
		dur += t.DurationMinutes
	}
	return TripSummary{
		TotalTrips:         len(trips),
		TotalDistanceKm:    utils.Round2(dist),
		AvgDurationMinutes: utils.Round2(dur / float64(len(trips))),
	}
}

// PopularStations 问题2：起点与终点分别计数取前N，站点id解析为名称
func (a *Analytics) PopularStations() PopularStations {
	startCounts, startOrder := map[string]int{}, []string{}
	endCounts, endOrder := map[string]int{}, []string{}
	for _, t := range a.tables.Trips {
		if _, ok := startCounts[t.StartStationID]; !ok {
			startOrder = append(startOrder, t.StartStationID)
		}
		startCounts[t.StartStationID]++
		if _, ok := endCounts[t.EndStationID]; !ok {
			endOrder = append(endOrder, t.EndStationID)
		}
		endCounts[t.EndStationID]++
	}

	toRanked := func(counts map[string]int, order []string) []StationCount {
		ranked := make([]StationCount, 0, len(order))
		for _, id := range order {
			ranked = append(ranked, StationCount{
				StationID:   id,
				StationName: a.stationName(id),
				Count:       counts[id],
			})
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
		return truncStations(ranked, a.StationLimit)
	}
	return PopularStations{Start: toRanked(startCounts, startOrder), End: toRanked(endCounts, endOrder)}
}

// PeakHours 问题3：按开始时间的小时(0-23)计数，只含数据里出现的小时
func (a *Analytics) PeakHours() map[int]int {
	hours := make(map[int]int)
	for _, t := range a.tables.Trips {
		hours[t.StartTime.Hour()]++
	}
	return hours
}

// PeakDay 问题4：骑行最多的日期；并列时取最早的日期
func (a *Analytics) PeakDay() PeakDay {
	counts := make(map[string]int)
	for _, t := range a.tables.Trips {
		counts[t.StartTime.Format(utils.DateLayout)]++
	}
	if len(counts) == 0 {
		return PeakDay{}
	}

	best, bestCount := "", 0
	for date, c := range counts {
		if c > bestCount || (c == bestCount && date < best) {
			best, bestCount = date, c
		}
	}
	day, _ := utils.ParseDate(best)
	return PeakDay{Date: best, Weekday: day.Weekday().String(), Count: bestCount}
}

// AvgDistanceByUserType 问题5：按用户类型的平均距离，两位小数
func (a *Analytics) AvgDistanceByUserType() map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, t := range a.tables.Trips {
		sums[string(t.UserType)] += t.DistanceKm
		counts[string(t.UserType)]++
	}
	result := make(map[string]float64, len(sums))
	for ut, c := range counts {
		result[ut] = utils.Round2(sums[ut] / float64(c))
	}
	return result
}

// BikeUtilization 问题6：总骑行分钟 / (车数 × 1440 × 覆盖天数) × 100
// 覆盖天数 = floor(最晚开始-最早开始的天数)+1；分母为0时利用率记0
func (a *Analytics) BikeUtilization() BikeUtilization {
	trips := a.tables.Trips
	if len(trips) == 0 {
		return BikeUtilization{}
	}

	bikes := make(map[string]bool)
	var totalMinutes float64
	earliest, latest := trips[0].StartTime, trips[0].StartTime
	for _, t := range trips {
		bikes[t.BikeID] = true
		totalMinutes += t.DurationMinutes
		if t.StartTime.Before(earliest) {
			earliest = t.StartTime
		}
		if t.StartTime.After(latest) {
			latest = t.StartTime
		}
	}

	days := int(latest.Sub(earliest).Hours()/24) + 1
	denom := float64(len(bikes)) * 1440 * float64(days)
	pct := 0.0
	if denom > 0 {
		pct = utils.Round2(totalMinutes / denom * 100)
	}
	return BikeUtilization{DistinctBikes: len(bikes), DateRangeDays: days, UtilizationPct: pct}
}

// MonthlyTrend 问题7：按开始时间的年月("2006-01")计数
func (a *Analytics) MonthlyTrend() map[string]int {
	months := make(map[string]int)
	for _, t := range a.tables.Trips {
		months[t.StartTime.Format("2006-01")]++
	}
	return months
}

// TopUsers 问题8：按用户计数取前N
func (a *Analytics) TopUsers() []UserCount {
	counts, order := map[string]int{}, []string{}
	for _, t := range a.tables.Trips {
		if _, ok := counts[t.UserID]; !ok {
			order = append(order, t.UserID)
		}
		counts[t.UserID]++
	}
	ranked := make([]UserCount, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, UserCount{UserID: id, Count: counts[id]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > a.UserLimit {
		ranked = ranked[:a.UserLimit]
	}
	return ranked
}

// MaintenanceCostByBikeType 问题9：按车型汇总维保费用，两位小数
func (a *Analytics) MaintenanceCostByBikeType() map[string]float64 {
	sums := make(map[string]float64)
	for _, m := range a.tables.Maintenance {
		sums[string(m.BikeType)] += m.Cost
	}
	for bt, v := range sums {
		sums[bt] = utils.Round2(v)
	}
	return sums
}

// TopRoutes 问题10：按有向(起点,终点)对计数取前N
func (a *Analytics) TopRoutes() []RouteCount {
	type routeKey struct{ start, end string }
	counts, order := map[routeKey]int{}, []routeKey{}
	for _, t := range a.tables.Trips {
		k := routeKey{t.StartStationID, t.EndStationID}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	ranked := make([]RouteCount, 0, len(order))
	for _, k := range order {
		ranked = append(ranked, RouteCount{
			StartStationID:   k.start,
			EndStationID:     k.end,
			StartStationName: a.stationName(k.start),
			EndStationName:   a.stationName(k.end),
			Count:            counts[k],
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > a.RouteLimit {
		ranked = ranked[:a.RouteLimit]
	}
	return ranked
}

// CompletionRate 问题11：completed占比(总数为0时记0)
func (a *Analytics) CompletionRate() CompletionRate {
	var completed, cancelled int
	for _, t := range a.tables.Trips {
		switch t.Status {
		case StatusCompleted:
			completed++
		case StatusCancelled:
			cancelled++
		}
	}
	total := len(a.tables.Trips)
	rate := 0.0
	if total > 0 {
		rate = utils.Round2(float64(completed) / float64(total) * 100)
	}
	return CompletionRate{Completed: completed, Cancelled: cancelled, Total: total, RatePct: rate}
}

// AvgTripsPerUser 问题12：整体人均与分用户类型人均
// 分组人均的分母是该组内的独立用户数
func (a *Analytics) AvgTripsPerUser() TripsPerUser {
	users := make(map[string]bool)
	groupTrips := make(map[string]int)
	groupUsers := make(map[string]map[string]bool)
	for _, t := range a.tables.Trips {
		users[t.UserID] = true
		ut := string(t.UserType)
		groupTrips[ut]++
		if groupUsers[ut] == nil {
			groupUsers[ut] = make(map[string]bool)
		}
		groupUsers[ut][t.UserID] = true
	}

	overall := 0.0
	if len(users) > 0 {
		overall = utils.Round2(float64(len(a.tables.Trips)) / float64(len(users)))
	}
	byType := make(map[string]float64, len(groupTrips))
	for ut, n := range groupTrips {
		if len(groupUsers[ut]) > 0 {
			byType[ut] = utils.Round2(float64(n) / float64(len(groupUsers[ut])))
		} else {
			byType[ut] = 0
		}
	}
	return TripsPerUser{Overall: overall, ByUserType: byType}
}

// MaintenanceFrequency 问题13：按bike_id统计维保次数取前N
func (a *Analytics) MaintenanceFrequency() []BikeMaintCount {
	counts, order := map[string]int{}, []string{}
	for _, m := range a.tables.Maintenance {
		if _, ok := counts[m.BikeID]; !ok {
			order = append(order, m.BikeID)
		}
		counts[m.BikeID]++
	}
	ranked := make([]BikeMaintCount, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, BikeMaintCount{BikeID: id, Count: counts[id]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > a.MaintenanceLimit {
		ranked = ranked[:a.MaintenanceLimit]
	}
	return ranked
}

// OutlierTrips 问题14：时长和距离分别做IQR检测，任一维度越界即标记；
// 结果按原表顺序列出前20条
func (a *Analytics) OutlierTrips() OutlierTrips {
	trips := a.tables.Trips
	durations := make([]float64, len(trips))
	distances := make([]float64, len(trips))
	for i, t := range trips {
		durations[i] = t.DurationMinutes
		distances[i] = t.DistanceKm
	}

	durMask, durBounds := IQROutliers(durations, 1.5)
	distMask, distBounds := IQROutliers(distances, 1.5)

	result := OutlierTrips{DurationBounds: durBounds, DistanceBounds: distBounds}
	for i, t := range trips {
		if !durMask[i] && !distMask[i] {
			continue
		}
		result.Total++
		if len(result.Trips) < 20 {
			result.Trips = append(result.Trips, OutlierTrip{
				TripID:          t.TripID,
				DurationMinutes: t.DurationMinutes,
				DistanceKm:      t.DistanceKm,
			})
		}
	}
	return result
}

// RunAll 依次执行全部查询，按查询名收集结果
func (a *Analytics) RunAll() map[string]interface{} {
	return map[string]interface{}{
		"trip_summary":                  a.TripSummary(),
		"popular_stations":              a.PopularStations(),
		"peak_hours":                    a.PeakHours(),
		"peak_day":                      a.PeakDay(),
		"avg_distance_by_user_type":     a.AvgDistanceByUserType(),
		"bike_utilization":              a.BikeUtilization(),
		"monthly_trend":                 a.MonthlyTrend(),
		"top_users":                     a.TopUsers(),
		"maintenance_cost_by_bike_type": a.MaintenanceCostByBikeType(),
		"top_routes":                    a.TopRoutes(),
		"completion_rate":               a.CompletionRate(),
		"avg_trips_per_user":            a.AvgTripsPerUser(),
		"maintenance_frequency":         a.MaintenanceFrequency(),
		"outlier_trips":                 a.OutlierTrips(),
	}
}

// stationName 站点id解析为名称，查不到时退回原id字符串
func (a *Analytics) stationName(id string) string {
	if name, ok := a.tables.StationNames[id]; ok && name != "" {
		return name
	}
	return id
}

func truncStations(ranked []StationCount, n int) []StationCount {
	if len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}
