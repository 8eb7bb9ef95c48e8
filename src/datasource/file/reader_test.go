package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tripsCSV = `trip_id,user_id,user_type,bike_id,bike_type,start_station_id,end_station_id,start_time,end_time,duration_minutes,distance_km,status
T1,U1,casual,B1,classic,S1,S2,2024-06-01 08:00:00,2024-06-01 08:30:00,30,5.0,completed
T2,U2,member,B2,electric,S2,S3,2024-06-01 09:00:00,2024-06-01 09:45:00,45,7.5,completed
`

const stationsCSV = `station_id,station_name,capacity,latitude,longitude
S1,中央公园站,20,40.0,-73.9
S2,河滨站,15,40.1,-73.8
`

const maintenanceCSV = `record_id,bike_id,bike_type,date,maintenance_type,cost,description
M1,B1,classic,2024-06-01,tire_repair,25.5,补胎
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCSVToDataFrame(t *testing.T) {
	path := writeFile(t, t.TempDir(), "trips.csv", tripsCSV)

	df, err := ReadCSVToDataFrame(path)
	require.NoError(t, err)

	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, 12, df.Ncol())
	// 所有列按字符串读入，后续由清洗流程强转
	assert.Equal(t, "30", df.Col("duration_minutes").Elem(0).String())
	assert.Equal(t, "T2", df.Col("trip_id").Elem(1).String())
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSVToDataFrame(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadTableRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "trips.txt", tripsCSV)
	_, err := ReadTable(path)
	assert.Error(t, err)
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "trips.csv", tripsCSV)
	writeFile(t, dir, "stations.csv", stationsCSV)
	writeFile(t, dir, "maintenance.csv", maintenanceCSV)

	ds, err := LoadDataset(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Trips.Nrow())
	assert.Equal(t, 2, ds.Stations.Nrow())
	assert.Equal(t, 1, ds.Maintenance.Nrow())
}

func TestLoadDatasetMissingTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "trips.csv", tripsCSV)

	_, err := LoadDataset(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stations")
}

func TestFindLatestTable(t *testing.T) {
	dir := t.TempDir()
	old := writeFile(t, dir, "trips_0531.csv", tripsCSV)
	latest := writeFile(t, dir, "trips_0601.csv", tripsCSV)
	writeFile(t, dir, "readme.txt", "不是表格")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	got, err := FindLatestTable(dir, "trips")
	require.NoError(t, err)
	assert.Equal(t, latest, got)

	_, err = FindLatestTable(dir, "不存在的关键词")
	assert.Error(t, err)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir)) // 已存在时幂等

	f := writeFile(t, t.TempDir(), "plain.txt", "x")
	assert.Error(t, EnsureDir(f))
}
