package processor

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"

	"CityBikeAnalytics/src/utils"
)

// 闭合枚举值。status与maintenance_type在清洗阶段强校验，
// user_type/bike_type按原始取值透传，分组时按实际字符串聚合。
type UserType string

const (
	UserCasual UserType = "casual"
	UserMember UserType = "member"
)

type BikeType string

const (
	BikeClassic  BikeType = "classic"
	BikeElectric BikeType = "electric"
)

type TripStatus string

const (
	StatusCompleted TripStatus = "completed"
	StatusCancelled TripStatus = "cancelled"
	StatusMissing   TripStatus = "" // 原始数据允许缺失
)

type MaintenanceType string

const (
	MaintTireRepair         MaintenanceType = "tire_repair"
	MaintBrakeAdjustment    MaintenanceType = "brake_adjustment"
	MaintBatteryReplacement MaintenanceType = "battery_replacement"
	MaintChainLubrication   MaintenanceType = "chain_lubrication"
	MaintGeneralInspection  MaintenanceType = "general_inspection"
)

func (m MaintenanceType) Valid() bool {
	switch m {
	case MaintTireRepair, MaintBrakeAdjustment, MaintBatteryReplacement,
		MaintChainLubrication, MaintGeneralInspection:
		return true
	}
	return false
}

func (s TripStatus) Valid() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusMissing
}

// ValidMaintenanceTypes 维保类型闭合集合
var ValidMaintenanceTypes = []string{
	string(MaintTireRepair), string(MaintBrakeAdjustment),
	string(MaintBatteryReplacement), string(MaintChainLubrication),
	string(MaintGeneralInspection),
}

// Trip 单次骑行记录(清洗后)
type Trip struct {
	TripID          string
	UserID          string
	UserType        UserType
	BikeID          string
	BikeType        BikeType
	StartStationID  string
	EndStationID    string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes float64
	DistanceKm      float64
	Status          TripStatus
}

// Station 站点记录(清洗后)
type Station struct {
	StationID   string
	StationName string
	Capacity    int
	Latitude    float64
	Longitude   float64
}

// MaintenanceRecord 维保记录(清洗后)
type MaintenanceRecord struct {
	RecordID        string
	BikeID          string
	BikeType        BikeType
	Date            time.Time
	MaintenanceType MaintenanceType
	Cost            float64
	Description     string
}

// Tables 一次分析运行所用的三张清洗后只读表
type Tables struct {
	Trips        []Trip
	Stations     []Station
	Maintenance  []MaintenanceRecord
	StationNames map[string]string // station_id -> station_name
}

// TripsFromDataFrame 将清洗后的trips表物化为结构体切片
func TripsFromDataFrame(df dataframe.DataFrame) ([]Trip, error) {
	trips := make([]Trip, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		start, err := utils.ParseTime(df.Col("start_time").Elem(i).String())
		if err != nil {
			return nil, fmt.Errorf("trips第%d行start_time解析失败: %w", i, err)
		}
		end, err := utils.ParseTime(df.Col("end_time").Elem(i).String())
		if err != nil {
			return nil, fmt.Errorf("trips第%d行end_time解析失败: %w", i, err)
		}
		trips = append(trips, Trip{
			TripID:          df.Col("trip_id").Elem(i).String(),
			UserID:          df.Col("user_id").Elem(i).String(),
			UserType:        UserType(df.Col("user_type").Elem(i).String()),
			BikeID:          df.Col("bike_id").Elem(i).String(),
			BikeType:        BikeType(df.Col("bike_type").Elem(i).String()),
			StartStationID:  df.Col("start_station_id").Elem(i).String(),
			EndStationID:    df.Col("end_station_id").Elem(i).String(),
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: df.Col("duration_minutes").Elem(i).Float(),
			DistanceKm:      df.Col("distance_km").Elem(i).Float(),
			Status:          TripStatus(statusString(df.Col("status").Elem(i).String())),
		})
	}
	return trips, nil
}

// StationsFromDataFrame 将清洗后的stations表物化为结构体切片
func StationsFromDataFrame(df dataframe.DataFrame) ([]Station, error) {
	stations := make([]Station, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		stations = append(stations, Station{
			StationID:   df.Col("station_id").Elem(i).String(),
			StationName: df.Col("station_name").Elem(i).String(),
			Capacity:    int(df.Col("capacity").Elem(i).Float()),
			Latitude:    df.Col("latitude").Elem(i).Float(),
			Longitude:   df.Col("longitude").Elem(i).Float(),
		})
	}
	return stations, nil
}

// MaintenanceFromDataFrame 将清洗后的maintenance表物化为结构体切片
func MaintenanceFromDataFrame(df dataframe.DataFrame) ([]MaintenanceRecord, error) {
	records := make([]MaintenanceRecord, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		date, err := utils.ParseDate(df.Col("date").Elem(i).String())
		if err != nil {
			return nil, fmt.Errorf("maintenance第%d行date解析失败: %w", i, err)
		}
		records = append(records, MaintenanceRecord{
			RecordID:        df.Col("record_id").Elem(i).String(),
			BikeID:          df.Col("bike_id").Elem(i).String(),
			BikeType:        BikeType(df.Col("bike_type").Elem(i).String()),
			Date:            date,
			MaintenanceType: MaintenanceType(df.Col("maintenance_type").Elem(i).String()),
			Cost:            df.Col("cost").Elem(i).Float(),
			Description:     df.Col("description").Elem(i).String(),
		})
	}
	return records, nil
}

// StationNameIndex 构建station_id到名称的只读映射
func StationNameIndex(stations []Station) map[string]string {
	index := make(map[string]string, len(stations))
	for _, s := range stations {
		index[s.StationID] = s.StationName
	}
	return index
}

// statusString NA单元格统一按空串处理
func statusString(s string) string {
	if s == "NaN" {
		return ""
	}
	return s
}
