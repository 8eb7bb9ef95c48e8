// data_handler.go
package email

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"

	"CityBikeAnalytics/src/utils"
)

// DataFrameWrapper 封装DataFrame并提供线程安全访问，
// 附件解析goroutine写入、分析流程读取共用一份数据
type DataFrameWrapper struct {
	df dataframe.DataFrame // 存储DataFrame数据
	mu sync.RWMutex        // 读写锁保证线程安全
}

// GetDF 获取当前DataFrame(线程安全)
func (d *DataFrameWrapper) GetDF() dataframe.DataFrame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.df
}

// SetDF 替换当前DataFrame(线程安全)
func (d *DataFrameWrapper) SetDF(df dataframe.DataFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.df = df
}

// ReadCSV 从CSV附件内容加载DataFrame，所有列按字符串读入
func (d *DataFrameWrapper) ReadCSV(data []byte) error {
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	)
	if df.Err != nil {
		return fmt.Errorf("解析CSV附件失败: %w", df.Err)
	}
	d.SetDF(df)
	return nil
}

// ReadXLSX 从xlsx附件内容加载DataFrame，sheetName为空时取第一个工作表
func (d *DataFrameWrapper) ReadXLSX(data []byte, sheetName string) error {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return err
	}

	if len(xlFile.Sheets) == 0 {
		return fmt.Errorf("excel附件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	if err := d.convertSheetToDataFrame(sheet); err != nil {
		return fmt.Errorf("转换为dataframe失败: %w", err)
	}
	return nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame(首行为表头)
func (d *DataFrameWrapper) convertSheetToDataFrame(sheet *xlsx.Sheet) error {
	if len(sheet.Rows) == 0 {
		return fmt.Errorf("工作表 %s 为空", sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.String())
	}
	if len(headers) == 0 {
		return fmt.Errorf("工作表 %s 缺少表头行", sheet.Name)
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}
	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			val := ""
			if i < len(row.Cells) {
				val = row.Cells[i].String()
			}
			columns[i] = append(columns[i], val)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	d.SetDF(dataframe.New(seriesList...))
	return nil
}

// SaveToExcel 将DataFrame保存为Excel文件
func (d *DataFrameWrapper) SaveToExcel(filePath string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return utils.SaveToExcel(d.df, filePath)
}
