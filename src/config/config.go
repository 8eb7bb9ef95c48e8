package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir   string `json:"data_dir"`   // 原始CSV数据目录
	OutputDir string `json:"output_dir"` // 报告与导出文件目录

	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"`

	WatchDir        string   `json:"watch_dir"`        // 监控目录，为空则不启用文件监控
	RefreshInterval Duration `json:"refresh_interval"` // 定时重跑分析的间隔，为0则只跑一次

	Email struct {
		Server        string   `json:"server"`         // IMAP服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 数据邮件主题关键词
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Server     string   `json:"server"`   // SMTP服务器地址
		Username   string   `json:"username"` // 邮箱用户名
		Password   string   `json:"password"` // 邮箱密码
		To         []string `json:"to"`       // 报告收件人
		Subject    string   `json:"subject"`  // 报告邮件主题
		Attachment string   `json:"attachment"`
	} `json:"send_email"`

	WebhookURL string `json:"webhook_url"` // 机器人webhook，为空则不推送
}

// DataConfig 分析相关的数据配置
type DataConfig struct {
	TopStations    int `json:"top_stations"`
	TopUsers       int `json:"top_users"`
	TopRoutes      int `json:"top_routes"`
	TopMaintenance int `json:"top_maintenance"`

	FareRates map[string]float64 `json:"fare_rates"` // 计价参数，如 rate_per_minute
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, nil, fmt.Errorf("解析Config失败: %w", err)
	}

	dcfg := defaultDataConfig()
	if err := json.Unmarshal(dataConfigData, dcfg); err != nil {
		return nil, nil, fmt.Errorf("解析DataConfig失败: %w", err)
	}

	return &cfg, dcfg, nil
}

// defaultDataConfig 数据配置缺省值，与业务口径保持一致
func defaultDataConfig() *DataConfig {
	return &DataConfig{
		TopStations:    10,
		TopUsers:       15,
		TopRoutes:      10,
		TopMaintenance: 10,
		FareRates:      map[string]float64{},
	}
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

// GetFareRate 读取计价参数(线程安全)，缺省返回fallback
func (dc *DataConfig) GetFareRate(name string, fallback float64) float64 {
	mu.RLock()
	defer mu.RUnlock()
	if v, ok := dc.FareRates[name]; ok {
		return v
	}
	return fallback
}

// SetFareRate 更新计价参数(线程安全)
func (dc *DataConfig) SetFareRate(name string, value float64) {
	mu.Lock()
	defer mu.Unlock()
	dc.FareRates[name] = value
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 字符串形式走time.ParseDuration，数值形式按纳秒处理
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(dur)
		return nil
	default:
		return fmt.Errorf("无效的duration值: %s", string(data))
	}
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
