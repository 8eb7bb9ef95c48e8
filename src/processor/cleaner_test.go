package processor

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawFrame 按全字符串列构建测试用原始表
func rawFrame(records [][]string) dataframe.DataFrame {
	return dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	)
}

func tripRecord(id, user, start, end, duration, distance, status string) []string {
	return []string{
		id, user, "casual", "B1", "classic", "S1", "S2",
		start, end, duration, distance, status,
	}
}

func rawTrips(rows ...[]string) dataframe.DataFrame {
	records := [][]string{TripColumns}
	records = append(records, rows...)
	return rawFrame(records)
}

func TestCleanTripsDropsEndBeforeStart(t *testing.T) {
	df := rawTrips(
		tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "5.0", "completed"),
		tripRecord("T2", "U2", "2024-06-01 09:00:00", "2024-06-01 08:00:00", "20", "3.0", "completed"),
		tripRecord("T3", "U3", "2024-06-01 10:00:00", "2024-06-01 10:45:00", "45", "8.0", "completed"),
	)

	audit := Audit{}
	clean, err := CleanTrips(df, audit)
	require.NoError(t, err)

	assert.Equal(t, 2, clean.Nrow())
	assert.Equal(t, 1, audit["trips.end_before_start"])
}

func TestCleanTripsBadTimestamp(t *testing.T) {
	df := rawTrips(
		tripRecord("T1", "U1", "not-a-time", "2024-06-01 08:30:00", "30", "5.0", "completed"),
		tripRecord("T2", "U2", "2024-06-01 09:00:00", "", "20", "3.0", "completed"),
		tripRecord("T3", "U3", "2024-06-01 10:00:00", "2024-06-01 10:45:00", "45", "8.0", "completed"),
	)

	audit := Audit{}
	clean, err := CleanTrips(df, audit)
	require.NoError(t, err)

	assert.Equal(t, 1, clean.Nrow())
	assert.Equal(t, 2, audit["trips.bad_timestamp"])
}

func TestCleanTripsDeduplicateKeepFirst(t *testing.T) {
	df := rawTrips(
		tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "5.0", "completed"),
		tripRecord("T1", "U9", "2024-06-01 09:00:00", "2024-06-01 09:30:00", "30", "6.0", "completed"),
	)

	audit := Audit{}
	clean, err := CleanTrips(df, audit)
	require.NoError(t, err)

	require.Equal(t, 1, clean.Nrow())
	assert.Equal(t, "U1", clean.Col("user_id").Elem(0).String())
	assert.Equal(t, 1, audit["trips.duplicate_id"])
}

func TestCleanTripsRecomputesMissingDuration(t *testing.T) {
	df := rawTrips(
		tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:42:00", "", "5.0", "completed"),
	)

	audit := Audit{}
	clean, err := CleanTrips(df, audit)
	require.NoError(t, err)

	require.Equal(t, 1, clean.Nrow())
	assert.InDelta(t, 42.0, clean.Col("duration_minutes").Elem(0).Float(), 1e-9)
	assert.Equal(t, 1, audit["trips.duration_recomputed"])
}

func TestCleanTripsDropsShortDuration(t *testing.T) {
	df := rawTrips(
		// 补算后的时长不足1分钟，应被剔除
		tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:00:30", "", "5.0", "completed"),
		tripRecord("T2", "U2", "2024-06-01 08:00:00", "2024-06-01 09:00:00", "0.5", "5.0", "completed"),
		tripRecord("T3", "U3", "2024-06-01 08:00:00", "2024-06-01 09:00:00", "60", "5.0", "completed"),
	)

	audit := Audit{}
	clean, err := CleanTrips(df, audit)
	require.NoError(t, err)

	assert.Equal(t, 1, clean.Nrow())
	assert.Equal(t, 2, audit["trips.duration_invalid"])
}

func TestCleanTripsFillsDistanceWithMean(t *testing.T) {
	df := rawTrips(
		tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "2.0", "completed"),
		tripRecord("T2", "U2", "2024-06-01 09:00:00", "2024-06-01 09:30:00", "30", "4.0", "completed"),
		tripRecord("T3", "U3", "2024-06-01 10:00:00", "2024-06-01 10:30:00", "30", "", "completed"),
	)

	audit := Audit{}
	clean, err := CleanTrips(df, audit)
	require.NoError(t, err)

	require.Equal(t, 3, clean.Nrow())
	assert.InDelta(t, 3.0, clean.Col("distance_km").Elem(2).Float(), 1e-9)
	assert.Equal(t, 1, audit["trips.distance_filled"])
}

func TestCleanTripsStatusFilter(t *testing.T) {
	df := rawTrips(
		tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "5.0", "completed"),
		tripRecord("T2", "U2", "2024-06-01 09:00:00", "2024-06-01 09:30:00", "30", "5.0", "cancelled"),
		tripRecord("T3", "U3", "2024-06-01 10:00:00", "2024-06-01 10:30:00", "30", "5.0", ""),
		tripRecord("T4", "U4", "2024-06-01 11:00:00", "2024-06-01 11:30:00", "30", "5.0", "exploded"),
	)

	audit := Audit{}
	clean, err := CleanTrips(df, audit)
	require.NoError(t, err)

	assert.Equal(t, 3, clean.Nrow())
	assert.Equal(t, 1, audit["trips.bad_status"])
}

func TestCleanTripsMissingKeyFields(t *testing.T) {
	row := tripRecord("T1", "", "2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "5.0", "completed")
	df := rawTrips(row)

	audit := Audit{}
	clean, err := CleanTrips(df, audit)
	require.NoError(t, err)

	assert.Equal(t, 0, clean.Nrow())
	assert.Equal(t, 1, audit["trips.missing_key_fields"])
}

func TestCleanTripsSchemaError(t *testing.T) {
	df := rawFrame([][]string{
		{"trip_id", "user_id"},
		{"T1", "U1"},
	})

	_, err := CleanTrips(df, Audit{})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "trips", schemaErr.Table)
	assert.Contains(t, schemaErr.Missing, "start_time")
}

func TestCleanTripsIdempotent(t *testing.T) {
	df := rawTrips(
		tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "5.0", "completed"),
		tripRecord("T2", "U2", "2024-06-01 09:00:00", "2024-06-01 08:00:00", "20", "3.0", "completed"),
		tripRecord("T3", "U3", "2024-06-01 10:00:00", "2024-06-01 10:45:00", "", "", ""),
	)

	first, err := CleanTrips(df, Audit{})
	require.NoError(t, err)

	secondAudit := Audit{}
	second, err := CleanTrips(first, secondAudit)
	require.NoError(t, err)

	assert.Equal(t, first.Nrow(), second.Nrow())
	assert.Empty(t, secondAudit, "清洗已清洗的表不应再淘汰或修复任何行")
	assert.Equal(t, first.Records(), second.Records())
}

func TestCleanTripsInvariants(t *testing.T) {
	df := rawTrips(
		tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "5.0", "completed"),
		tripRecord("T2", "U2", "2024-06-01 09:00:00", "2024-06-01 09:00:30", "", "3.0", "cancelled"),
		tripRecord("T3", "U3", "2024-06-01 10:00:00", "2024-06-01 11:00:00", "", "", ""),
	)

	clean, err := CleanTrips(df, Audit{})
	require.NoError(t, err)

	trips, err := TripsFromDataFrame(clean)
	require.NoError(t, err)

	for _, trip := range trips {
		assert.True(t, trip.EndTime.After(trip.StartTime))
		assert.GreaterOrEqual(t, trip.DurationMinutes, 1.0)
		assert.GreaterOrEqual(t, trip.DistanceKm, 0.0)
	}
}

func stationRecord(id, name, capacity, lat, lon string) []string {
	return []string{id, name, capacity, lat, lon}
}

func rawStations(rows ...[]string) dataframe.DataFrame {
	records := [][]string{StationColumns}
	records = append(records, rows...)
	return rawFrame(records)
}

func TestCleanStationsRules(t *testing.T) {
	df := rawStations(
		stationRecord("S1", "中央公园站", "20", "40.0", "-73.9"),
		stationRecord("S1", "重复站", "15", "40.1", "-73.8"),
		stationRecord("S2", "", "10", "40.2", "-73.7"),
		stationRecord("S3", "越界站", "10", "95.0", "-73.7"),
		stationRecord("S4", "零容量站", "0", "40.3", "-73.6"),
		stationRecord("S5", "正常站", "12", "40.4", "-73.5"),
	)

	audit := Audit{}
	clean, err := CleanStations(df, audit)
	require.NoError(t, err)

	assert.Equal(t, 2, clean.Nrow())
	assert.Equal(t, 1, audit["stations.duplicate_id"])
	assert.Equal(t, 1, audit["stations.missing_fields"])
	assert.Equal(t, 1, audit["stations.bad_coords"])
	assert.Equal(t, 1, audit["stations.bad_capacity"])

	stations, err := StationsFromDataFrame(clean)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, s := range stations {
		assert.False(t, seen[s.StationID], "station_id必须唯一")
		seen[s.StationID] = true
		assert.True(t, s.Latitude >= -90 && s.Latitude <= 90)
		assert.True(t, s.Longitude >= -180 && s.Longitude <= 180)
		assert.Greater(t, s.Capacity, 0)
	}
}

func maintRecord(id, bike, date, mtype, cost string) []string {
	return []string{id, bike, "classic", date, mtype, cost, "例行检查"}
}

func rawMaintenance(rows ...[]string) dataframe.DataFrame {
	records := [][]string{MaintenanceColumns}
	records = append(records, rows...)
	return rawFrame(records)
}

func TestCleanMaintenanceRules(t *testing.T) {
	df := rawMaintenance(
		maintRecord("M1", "B1", "2024-06-01", "tire_repair", "25.5"),
		maintRecord("M1", "B2", "2024-06-02", "brake_adjustment", "10"),
		maintRecord("M2", "B3", "", "general_inspection", "5"),
		maintRecord("M3", "B4", "2024-06-03", "paint_job", "30"),
		maintRecord("M4", "B5", "2024-06-04", "battery_replacement", "-3"),
		maintRecord("M5", "B6", "2024-06-05", "chain_lubrication", "0"),
	)

	audit := Audit{}
	clean, err := CleanMaintenance(df, audit)
	require.NoError(t, err)

	assert.Equal(t, 2, clean.Nrow())
	assert.Equal(t, 1, audit["maintenance.duplicate_id"])
	assert.Equal(t, 1, audit["maintenance.missing_fields"])
	assert.Equal(t, 1, audit["maintenance.bad_type"])
	assert.Equal(t, 1, audit["maintenance.negative_cost"])
}

func TestCleanFacade(t *testing.T) {
	result, err := Clean(
		rawTrips(tripRecord("T1", "U1", "2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "5.0", "completed")),
		rawStations(stationRecord("S1", "中央公园站", "20", "40.0", "-73.9"), stationRecord("S2", "河滨站", "10", "40.1", "-73.8")),
		rawMaintenance(maintRecord("M1", "B1", "2024-06-01", "tire_repair", "25.5")),
	)
	require.NoError(t, err)

	assert.Len(t, result.Tables.Trips, 1)
	assert.Len(t, result.Tables.Stations, 2)
	assert.Len(t, result.Tables.Maintenance, 1)
	assert.Equal(t, "中央公园站", result.Tables.StationNames["S1"])
}
