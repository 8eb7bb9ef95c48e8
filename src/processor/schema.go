package processor

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"CityBikeAnalytics/src/utils"
)

// 各表的必需列
var (
	TripColumns = []string{
		"trip_id", "user_id", "user_type", "bike_id", "bike_type",
		"start_station_id", "end_station_id", "start_time", "end_time",
		"duration_minutes", "distance_km", "status",
	}
	StationColumns = []string{
		"station_id", "station_name", "capacity", "latitude", "longitude",
	}
	MaintenanceColumns = []string{
		"record_id", "bike_id", "bike_type", "date",
		"maintenance_type", "cost", "description",
	}
)

// SchemaError 表结构不完整，整个清洗过程中唯一的致命错误
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("表 %s 缺少必需列: %s", e.Table, strings.Join(e.Missing, ", "))
}

// RequireColumns 校验DataFrame包含全部必需列，缺列返回SchemaError
func RequireColumns(df dataframe.DataFrame, table string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !utils.HasColumn(df, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Table: table, Missing: missing}
	}
	return nil
}
