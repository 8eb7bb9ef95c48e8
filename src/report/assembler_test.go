package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CityBikeAnalytics/src/processor"
	"CityBikeAnalytics/src/storage"
)

func rawFrame(records [][]string) dataframe.DataFrame {
	return dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	)
}

func testCleanResult(t *testing.T) *processor.CleanResult {
	t.Helper()
	trips := rawFrame([][]string{
		processor.TripColumns,
		{"T1", "U1", "casual", "B1", "classic", "S1", "S2",
			"2024-06-01 08:00:00", "2024-06-01 08:30:00", "30", "5.0", "completed"},
		{"T2", "U2", "member", "B2", "electric", "S2", "S1",
			"2024-06-01 09:00:00", "2024-06-01 09:45:00", "45", "7.5", "cancelled"},
	})
	stations := rawFrame([][]string{
		processor.StationColumns,
		{"S1", "中央公园站", "20", "40.0", "-73.9"},
		{"S2", "河滨站", "15", "40.1", "-73.8"},
	})
	maintenance := rawFrame([][]string{
		processor.MaintenanceColumns,
		{"M1", "B1", "classic", "2024-06-01", "tire_repair", "25.5", "补胎"},
	})

	result, err := processor.Clean(trips, stations, maintenance)
	require.NoError(t, err)
	return result
}

func newTestAssembler(t *testing.T) (*Assembler, string) {
	t.Helper()
	dir := t.TempDir()
	logger, err := storage.NewLogger(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return NewAssembler(filepath.Join(dir, "output"), logger), filepath.Join(dir, "output")
}

func TestFormatSummarySections(t *testing.T) {
	result := testCleanResult(t)
	analytics := processor.NewAnalytics(result.Tables)

	summary := FormatSummary(analytics, result.Audit)

	assert.Contains(t, summary, "共享单车运营分析报告")
	assert.Contains(t, summary, "总骑行次数: 2")
	assert.Contains(t, summary, "中央公园站")
	assert.Contains(t, summary, "完成率: 50.00%")
	assert.Contains(t, summary, "2024-06-01")
}

func TestWriteSummaryAndExports(t *testing.T) {
	result := testCleanResult(t)
	analytics := processor.NewAnalytics(result.Tables)
	assembler, outDir := newTestAssembler(t)

	path, err := assembler.WriteSummary(analytics, result.Audit)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "summary_report.txt"), path)

	require.NoError(t, assembler.ExportCleanTables(result))
	require.NoError(t, assembler.ExportTopLists(analytics))
	require.NoError(t, assembler.ExportExcel(result))

	for _, name := range []string{
		"summary_report.txt", "trips_clean.csv", "stations_clean.csv",
		"maintenance_clean.csv", "top_users.csv", "top_routes.csv",
		"trips_clean.xlsx",
	} {
		info, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "top_routes.csv"))
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "start_station"))
	assert.Contains(t, content, "中央公园站")
}

func TestExportTopListsEmptyTables(t *testing.T) {
	assembler, outDir := newTestAssembler(t)
	analytics := processor.NewAnalytics(processor.Tables{})

	// 空表不产出榜单文件，也不报错
	require.NoError(t, assembler.ExportTopLists(analytics))
	_, err := os.Stat(filepath.Join(outDir, "top_users.csv"))
	assert.True(t, os.IsNotExist(err))
}
