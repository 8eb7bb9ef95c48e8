// assembler.go
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"CityBikeAnalytics/src/processor"
	"CityBikeAnalytics/src/storage"
	"CityBikeAnalytics/src/utils"
)

// 报告层：把分析结果拼装成文本摘要和CSV/Excel产物。
// 只消费清洗后的表和查询结果，从不接触原始数据。

// Assembler 分析产物组装器
type Assembler struct {
	OutputDir string
	logger    *storage.Logger
}

func NewAssembler(outputDir string, logger *storage.Logger) *Assembler {
	return &Assembler{OutputDir: outputDir, logger: logger}
}

// FormatSummary 拼装文本版分析摘要
func FormatSummary(a *processor.Analytics, audit processor.Audit) string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "%s\n共享单车运营分析报告\n%s\n生成时间: %s\n\n",
		line, line, time.Now().Format(utils.DateTimeLayout))

	summary := a.TripSummary()
	fmt.Fprintf(&b, "骑行概览\n--------\n总骑行次数: %d\n总骑行距离: %.2f km\n平均骑行时长: %.2f 分钟\n\n",
		summary.TotalTrips, summary.TotalDistanceKm, summary.AvgDurationMinutes)

	popular := a.PopularStations()
	b.WriteString("热门起点站\n----------\n")
	for i, s := range popular.Start {
		fmt.Fprintf(&b, "%2d. %s - %d 次\n", i+1, s.StationName, s.Count)
	}
	b.WriteString("\n热门终点站\n----------\n")
	for i, s := range popular.End {
		fmt.Fprintf(&b, "%2d. %s - %d 次\n", i+1, s.StationName, s.Count)
	}

	peak := a.PeakDay()
	fmt.Fprintf(&b, "\n骑行高峰日\n----------\n日期: %s (%s)，共 %d 次\n",
		peak.Date, peak.Weekday, peak.Count)

	util := a.BikeUtilization()
	fmt.Fprintf(&b, "\n车辆利用率\n----------\n利用率: %.2f%%\n车队规模: %d 辆\n覆盖天数: %d 天\n",
		util.UtilizationPct, util.DistinctBikes, util.DateRangeDays)

	completion := a.CompletionRate()
	fmt.Fprintf(&b, "\n完成率\n------\n完成率: %.2f%%\n完成: %d 次\n取消: %d 次\n",
		completion.RatePct, completion.Completed, completion.Cancelled)

	outliers := a.OutlierTrips()
	fmt.Fprintf(&b, "\n异常骑行\n--------\n异常总数: %d (时长界限 %.2f~%.2f 分钟，距离界限 %.2f~%.2f km)\n",
		outliers.Total,
		outliers.DurationBounds.Lower, outliers.DurationBounds.Upper,
		outliers.DistanceBounds.Lower, outliers.DistanceBounds.Upper)

	if len(audit) > 0 {
		b.WriteString("\n清洗审计\n--------\n")
		keys := make([]string, 0, len(audit))
		for k := range audit {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%-30s %d\n", k, audit[k])
		}
	}

	b.WriteString(line + "\n")
	return b.String()
}

// WriteSummary 把文本摘要写到输出目录，返回文件路径
func (r *Assembler) WriteSummary(a *processor.Analytics, audit processor.Audit) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	path := filepath.Join(r.OutputDir, "summary_report.txt")
	if err := os.WriteFile(path, []byte(FormatSummary(a, audit)), 0644); err != nil {
		return "", fmt.Errorf("写入摘要报告失败: %w", err)
	}
	r.logger.Info(fmt.Sprintf("摘要报告已生成: %s", path))
	return path, nil
}

// ExportCleanTables 导出三张清洗后的表为CSV
func (r *Assembler) ExportCleanTables(result *processor.CleanResult) error {
	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	frames := map[string]dataframe.DataFrame{
		"trips_clean.csv":       result.TripsFrame,
		"stations_clean.csv":    result.StationsFrame,
		"maintenance_clean.csv": result.MaintenanceFrame,
	}
	for name, df := range frames {
		if err := r.writeCSV(df, name); err != nil {
			return err
		}
	}
	return nil
}

// topUserRow CSV导出行
type topUserRow struct {
	UserID string `dataframe:"user_id"`
	Trips  int    `dataframe:"trips"`
}

// topRouteRow CSV导出行
type topRouteRow struct {
	StartStation string `dataframe:"start_station"`
	EndStation   string `dataframe:"end_station"`
	Trips        int    `dataframe:"trips"`
}

// ExportTopLists 导出活跃用户榜和热门路线榜
func (r *Assembler) ExportTopLists(a *processor.Analytics) error {
	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	// LoadStructs不接受空切片，空榜单直接跳过
	if users := a.TopUsers(); len(users) > 0 {
		userRows := make([]topUserRow, len(users))
		for i, u := range users {
			userRows[i] = topUserRow{UserID: u.UserID, Trips: u.Count}
		}
		if err := r.writeCSV(dataframe.LoadStructs(userRows), "top_users.csv"); err != nil {
			return err
		}
	}

	routes := a.TopRoutes()
	if len(routes) == 0 {
		return nil
	}
	routeRows := make([]topRouteRow, len(routes))
	for i, rt := range routes {
		routeRows[i] = topRouteRow{
			StartStation: rt.StartStationName,
			EndStation:   rt.EndStationName,
			Trips:        rt.Count,
		}
	}
	return r.writeCSV(dataframe.LoadStructs(routeRows), "top_routes.csv")
}

// ExportExcel 导出清洗后的trips表为Excel，方便运营侧直接查看
func (r *Assembler) ExportExcel(result *processor.CleanResult) error {
	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	path := filepath.Join(r.OutputDir, "trips_clean.xlsx")
	if err := utils.SaveToExcel(result.TripsFrame, path); err != nil {
		return fmt.Errorf("导出Excel失败: %w", err)
	}
	r.logger.Info(fmt.Sprintf("Excel已导出: %s", path))
	return nil
}

func (r *Assembler) writeCSV(df dataframe.DataFrame, name string) error {
	if df.Err != nil {
		return fmt.Errorf("构建%s数据失败: %w", name, df.Err)
	}

	path := filepath.Join(r.OutputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建%s失败: %w", name, err)
	}
	defer f.Close()

	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("写入%s失败: %w", name, err)
	}
	r.logger.Info(fmt.Sprintf("CSV已导出: %s", path))
	return nil
}
