// reader.go
package file

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// 表格文件读取。所有列一律按字符串读入，
// 类型强转和校验交给下游清洗流程统一处理。

// ReadCSVToDataFrame 读取带表头的CSV文件
func ReadCSVToDataFrame(filePath string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开CSV文件失败: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析CSV文件失败: %w", df.Err)
	}
	return df, nil
}

// ReadXLSXToDataFrame 读取xlsx文件的指定工作表，sheetName为空时取第一个
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开xlsx文件失败: %w", err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame(首行为表头)
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 为空", sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}
	if len(headers) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 缺少表头行", sheet.Name)
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}
	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			val := ""
			if i < len(row.Cells) {
				val = row.Cells[i].Value
			}
			columns[i] = append(columns[i], val)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}
	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("构建DataFrame失败: %w", df.Err)
	}
	return df, nil
}

// ReadTable 按扩展名分派读取CSV或xlsx
func ReadTable(filePath string) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return ReadCSVToDataFrame(filePath)
	case ".xlsx":
		return ReadXLSXToDataFrame(filePath, "")
	}
	return dataframe.DataFrame{}, fmt.Errorf("不支持的文件类型: %s", filePath)
}

// Dataset 一次分析运行的三张原始表
type Dataset struct {
	Trips       dataframe.DataFrame
	Stations    dataframe.DataFrame
	Maintenance dataframe.DataFrame
}

// LoadDataset 从数据目录加载trips/stations/maintenance三张表，
// 同名文件csv优先，找不到时回退xlsx
func LoadDataset(dataDir string) (*Dataset, error) {
	trips, err := loadNamedTable(dataDir, "trips")
	if err != nil {
		return nil, err
	}
	stations, err := loadNamedTable(dataDir, "stations")
	if err != nil {
		return nil, err
	}
	maintenance, err := loadNamedTable(dataDir, "maintenance")
	if err != nil {
		return nil, err
	}
	return &Dataset{Trips: trips, Stations: stations, Maintenance: maintenance}, nil
}

func loadNamedTable(dataDir, name string) (dataframe.DataFrame, error) {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(dataDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return ReadTable(path)
		}
	}
	return dataframe.DataFrame{}, fmt.Errorf("数据目录 %s 缺少 %s 表(csv/xlsx)", dataDir, name)
}

// FindLatestTable 在目录中按修改时间找最新的、文件名含keyword的表格文件
func FindLatestTable(dir, keyword string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("读取目录失败: %w", err)
	}

	var latestPath string
	var latestInfo os.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		if keyword != "" && !strings.Contains(info.Name(), keyword) {
			continue
		}
		if latestInfo == nil || info.ModTime().After(latestInfo.ModTime()) {
			latestInfo = info
			latestPath = filepath.Join(dir, info.Name())
		}
	}

	if latestPath == "" {
		return "", fmt.Errorf("目录 %s 中没有匹配的表格文件", dir)
	}
	return latestPath, nil
}

// EnsureDir 确保目录存在
func EnsureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s 已存在且不是目录", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}

// SetupSignalHandler 设置信号处理器
func SetupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Printf("\n收到信号: %v，准备退出...\n", sig)
		cancel()
	}()
}
