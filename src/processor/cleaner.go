package processor

import (
	"math"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"CityBikeAnalytics/src/utils"
)

// 数据清洗。每张表的规则按固定顺序执行，保证结果可复现；
// 单行脏数据只淘汰、只计数，绝不中断流程，
// 唯一的致命错误是表结构本身缺列(SchemaError)。

// Audit 清洗审计：每条规则淘汰/修复的行数
type Audit map[string]int

// Add 累加一条审计计数
func (a Audit) Add(key string, n int) {
	if n > 0 {
		a[key] += n
	}
}

// CleanResult 一次清洗的全部产物：三张清洗后的表
// (dataframe形态用于导出，结构体形态用于分析)和审计计数
type CleanResult struct {
	TripsFrame       dataframe.DataFrame
	StationsFrame    dataframe.DataFrame
	MaintenanceFrame dataframe.DataFrame
	Tables           Tables
	Audit            Audit
}

// Clean 清洗三张原始表并物化为只读分析表
func Clean(rawTrips, rawStations, rawMaintenance dataframe.DataFrame) (*CleanResult, error) {
	audit := Audit{}

	tripsDF, err := CleanTrips(rawTrips, audit)
	if err != nil {
		return nil, err
	}
	stationsDF, err := CleanStations(rawStations, audit)
	if err != nil {
		return nil, err
	}
	maintDF, err := CleanMaintenance(rawMaintenance, audit)
	if err != nil {
		return nil, err
	}

	trips, err := TripsFromDataFrame(tripsDF)
	if err != nil {
		return nil, err
	}
	stations, err := StationsFromDataFrame(stationsDF)
	if err != nil {
		return nil, err
	}
	maintenance, err := MaintenanceFromDataFrame(maintDF)
	if err != nil {
		return nil, err
	}

	return &CleanResult{
		TripsFrame:       tripsDF,
		StationsFrame:    stationsDF,
		MaintenanceFrame: maintDF,
		Tables: Tables{
			Trips:        trips,
			Stations:     stations,
			Maintenance:  maintenance,
			StationNames: StationNameIndex(stations),
		},
		Audit: audit,
	}, nil
}

// tripRow 清洗过程中的中间行
type tripRow struct {
	tripID, userID, userType, bikeID, bikeType string
	startStation, endStation                   string
	start, end                                 time.Time
	duration, distance                         float64
	status                                     string
}

// CleanTrips 清洗trips表
// 规则顺序：时间戳解析 → 数值强转 → 剔除end<=start → trip_id去重(保留首次)
// → 剔除关键字段缺失 → 补算缺失时长 → 剔除时长<1 → 均值填充缺失距离
// → 剔除非法status
func CleanTrips(df dataframe.DataFrame, audit Audit) (dataframe.DataFrame, error) {
	if err := RequireColumns(df, "trips", TripColumns...); err != nil {
		return dataframe.DataFrame{}, err
	}

	cols := make(map[string][]string, len(TripColumns))
	for _, c := range TripColumns {
		cols[c] = df.Col(c).Records()
	}

	rows := make([]tripRow, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		start, errS := utils.ParseTime(naEmpty(cols["start_time"][i]))
		end, errE := utils.ParseTime(naEmpty(cols["end_time"][i]))
		if errS != nil || errE != nil || start.IsZero() || end.IsZero() {
			audit.Add("trips.bad_timestamp", 1)
			continue
		}
		rows = append(rows, tripRow{
			tripID:       naEmpty(cols["trip_id"][i]),
			userID:       naEmpty(cols["user_id"][i]),
			userType:     naEmpty(cols["user_type"][i]),
			bikeID:       naEmpty(cols["bike_id"][i]),
			bikeType:     naEmpty(cols["bike_type"][i]),
			startStation: naEmpty(cols["start_station_id"][i]),
			endStation:   naEmpty(cols["end_station_id"][i]),
			start:        start,
			end:          end,
			duration:     utils.ParseFloat(cols["duration_minutes"][i]),
			distance:     utils.ParseFloat(cols["distance_km"][i]),
			status:       naEmpty(cols["status"][i]),
		})
	}

	// 剔除结束不晚于开始的行
	kept := rows[:0]
	for _, r := range rows {
		if r.end.After(r.start) {
			kept = append(kept, r)
		} else {
			audit.Add("trips.end_before_start", 1)
		}
	}
	rows = kept

	// trip_id去重，保留首次出现
	seen := make(map[string]bool, len(rows))
	kept = rows[:0]
	for _, r := range rows {
		if r.tripID != "" && seen[r.tripID] {
			audit.Add("trips.duplicate_id", 1)
			continue
		}
		seen[r.tripID] = true
		kept = append(kept, r)
	}
	rows = kept

	// 关键字段缺一不可
	kept = rows[:0]
	for _, r := range rows {
		if r.tripID == "" || r.userID == "" || r.bikeID == "" ||
			r.startStation == "" || r.endStation == "" {
			audit.Add("trips.missing_key_fields", 1)
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	// 缺失时长用起止时间差补算
	for i := range rows {
		if math.IsNaN(rows[i].duration) {
			rows[i].duration = rows[i].end.Sub(rows[i].start).Minutes()
			audit.Add("trips.duration_recomputed", 1)
		}
	}

	// 时长低于1分钟视为无效骑行
	kept = rows[:0]
	for _, r := range rows {
		if math.IsNaN(r.duration) || r.duration < 1 {
			audit.Add("trips.duration_invalid", 1)
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	// 缺失距离用前序过滤后的列均值填充
	var sum float64
	var cnt int
	for _, r := range rows {
		if !math.IsNaN(r.distance) {
			sum += r.distance
			cnt++
		}
	}
	mean := 0.0
	if cnt > 0 {
		mean = sum / float64(cnt)
	}
	for i := range rows {
		if math.IsNaN(rows[i].distance) {
			rows[i].distance = mean
			audit.Add("trips.distance_filled", 1)
		}
	}

	// status只接受completed/cancelled或缺失
	kept = rows[:0]
	for _, r := range rows {
		if TripStatus(r.status).Valid() {
			kept = append(kept, r)
		} else {
			audit.Add("trips.bad_status", 1)
		}
	}
	rows = kept

	records := [][]string{TripColumns}
	for _, r := range rows {
		records = append(records, []string{
			r.tripID, r.userID, r.userType, r.bikeID, r.bikeType,
			r.startStation, r.endStation,
			r.start.Format(utils.DateTimeLayout), r.end.Format(utils.DateTimeLayout),
			formatFloat(r.duration), formatFloat(r.distance), r.status,
		})
	}
	return loadStringFrame(records, TripColumns), nil
}

// stationRow 清洗过程中的中间行
type stationRow struct {
	stationID, stationName string
	capacity, lat, lon     float64
}

// CleanStations 清洗stations表
// 规则顺序：数值强转 → station_id去重(保留首次) → 剔除字段缺失
// → 剔除经纬度越界 → 剔除容量<=0
func CleanStations(df dataframe.DataFrame, audit Audit) (dataframe.DataFrame, error) {
	if err := RequireColumns(df, "stations", StationColumns...); err != nil {
		return dataframe.DataFrame{}, err
	}

	cols := make(map[string][]string, len(StationColumns))
	for _, c := range StationColumns {
		cols[c] = df.Col(c).Records()
	}

	rows := make([]stationRow, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		rows = append(rows, stationRow{
			stationID:   naEmpty(cols["station_id"][i]),
			stationName: naEmpty(cols["station_name"][i]),
			capacity:    utils.ParseFloat(cols["capacity"][i]),
			lat:         utils.ParseFloat(cols["latitude"][i]),
			lon:         utils.ParseFloat(cols["longitude"][i]),
		})
	}

	seen := make(map[string]bool, len(rows))
	kept := rows[:0]
	for _, r := range rows {
		if r.stationID != "" && seen[r.stationID] {
			audit.Add("stations.duplicate_id", 1)
			continue
		}
		seen[r.stationID] = true
		kept = append(kept, r)
	}
	rows = kept

	kept = rows[:0]
	for _, r := range rows {
		if r.stationID == "" || r.stationName == "" ||
			math.IsNaN(r.capacity) || math.IsNaN(r.lat) || math.IsNaN(r.lon) {
			audit.Add("stations.missing_fields", 1)
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	kept = rows[:0]
	for _, r := range rows {
		if r.lat < -90 || r.lat > 90 || r.lon < -180 || r.lon > 180 {
			audit.Add("stations.bad_coords", 1)
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	kept = rows[:0]
	for _, r := range rows {
		if r.capacity <= 0 {
			audit.Add("stations.bad_capacity", 1)
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	records := [][]string{StationColumns}
	for _, r := range rows {
		records = append(records, []string{
			r.stationID, r.stationName,
			strconv.Itoa(int(r.capacity)), formatFloat(r.lat), formatFloat(r.lon),
		})
	}
	return loadStringFrame(records, StationColumns), nil
}

// maintRow 清洗过程中的中间行
type maintRow struct {
	recordID, bikeID, bikeType string
	date                       time.Time
	maintType                  string
	cost                       float64
	description                string
}

// CleanMaintenance 清洗maintenance表
// 规则顺序：日期解析 → 费用强转 → record_id去重(保留首次)
// → 剔除字段缺失 → 剔除非法维保类型 → 剔除负费用
func CleanMaintenance(df dataframe.DataFrame, audit Audit) (dataframe.DataFrame, error) {
	if err := RequireColumns(df, "maintenance", MaintenanceColumns...); err != nil {
		return dataframe.DataFrame{}, err
	}

	cols := make(map[string][]string, len(MaintenanceColumns))
	for _, c := range MaintenanceColumns {
		cols[c] = df.Col(c).Records()
	}

	rows := make([]maintRow, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		date, err := utils.ParseDate(naEmpty(cols["date"][i]))
		if err != nil {
			// 无法解析的日期按缺失处理，走统一的缺失字段剔除
			date = time.Time{}
		}
		rows = append(rows, maintRow{
			recordID:    naEmpty(cols["record_id"][i]),
			bikeID:      naEmpty(cols["bike_id"][i]),
			bikeType:    naEmpty(cols["bike_type"][i]),
			date:        date,
			maintType:   naEmpty(cols["maintenance_type"][i]),
			cost:        utils.ParseFloat(cols["cost"][i]),
			description: naEmpty(cols["description"][i]),
		})
	}

	seen := make(map[string]bool, len(rows))
	kept := rows[:0]
	for _, r := range rows {
		if r.recordID != "" && seen[r.recordID] {
			audit.Add("maintenance.duplicate_id", 1)
			continue
		}
		seen[r.recordID] = true
		kept = append(kept, r)
	}
	rows = kept

	kept = rows[:0]
	for _, r := range rows {
		if r.recordID == "" || r.bikeID == "" || r.date.IsZero() ||
			r.maintType == "" || math.IsNaN(r.cost) {
			audit.Add("maintenance.missing_fields", 1)
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	kept = rows[:0]
	for _, r := range rows {
		if !MaintenanceType(r.maintType).Valid() {
			audit.Add("maintenance.bad_type", 1)
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	kept = rows[:0]
	for _, r := range rows {
		if r.cost < 0 {
			audit.Add("maintenance.negative_cost", 1)
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	records := [][]string{MaintenanceColumns}
	for _, r := range rows {
		records = append(records, []string{
			r.recordID, r.bikeID, r.bikeType,
			r.date.Format(utils.DateLayout), r.maintType,
			formatFloat(r.cost), r.description,
		})
	}
	return loadStringFrame(records, MaintenanceColumns), nil
}

// naEmpty gota把NA单元格读成"NaN"字符串，统一还原为空串
func naEmpty(s string) string {
	if s == "NaN" {
		return ""
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// loadStringFrame 以全字符串列构建dataframe；零行时退化为空列，
// 避开LoadRecords对空记录集的报错
func loadStringFrame(records [][]string, header []string) dataframe.DataFrame {
	if len(records) <= 1 {
		ss := make([]series.Series, len(header))
		for i, name := range header {
			ss[i] = series.New([]string{}, series.String, name)
		}
		return dataframe.New(ss...)
	}
	return dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	)
}
