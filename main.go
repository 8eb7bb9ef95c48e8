package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"CityBikeAnalytics/src/config"
	"CityBikeAnalytics/src/datapush"
	"CityBikeAnalytics/src/datasource/email"
	"CityBikeAnalytics/src/datasource/file"
	"CityBikeAnalytics/src/processor"
	"CityBikeAnalytics/src/report"
	"CityBikeAnalytics/src/storage"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	logName := cfg.LogName
	if logName == "" {
		logName = "app.log"
	}
	logger, err := storage.NewLogger(logName)
	if err != nil {
		log.Fatal("初始化日志失败:", err)
	}

	// 首次全量分析
	if err := runPipeline(cfg, dcfg, logger); err != nil {
		logger.Fatal("分析流程失败: " + err.Error())
		logger.Close()
		os.Exit(1)
	}

	c := cron.New()

	// 定时重跑分析
	if cfg.RefreshInterval > 0 {
		cronSpec := fmt.Sprintf("@every %s", time.Duration(cfg.RefreshInterval).String())
		err = c.AddFunc(cronSpec, func() {
			logger.Info(fmt.Sprintf("开始定时分析(间隔: %v)...", cronSpec))
			if err := runPipeline(cfg, dcfg, logger); err != nil {
				logger.Error("定时分析失败: " + err.Error())
			}
		})
		if err != nil {
			logger.Error("创建定时任务失败: " + err.Error())
			return
		}
	}

	// 定时拉取邮箱里的新数据附件
	if cfg.Email.Server != "" && cfg.Email.CheckInterval > 0 {
		emailClient := email.NewEmailClient(
			cfg.Email.Server,
			cfg.Email.Username,
			cfg.Email.Password)
		handler := email.NewTableAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir)

		cronSpec := fmt.Sprintf("@every %s", time.Duration(cfg.Email.CheckInterval).String())
		err = c.AddFunc(cronSpec, func() {
			newEmail, err := email.CheckAndProcessEmails(emailClient, cfg.Email.TargetSubject, logger)
			if err != nil {
				logger.Error("检查处理邮件失败: " + err.Error())
				return
			}
			if newEmail == nil {
				return
			}

			if err := handler.Handle(newEmail); err != nil {
				logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", newEmail.UID, err))
				return
			}
			if err := runPipeline(cfg, dcfg, logger); err != nil {
				logger.Error("邮件数据分析失败: " + err.Error())
			}
		})
		if err != nil {
			logger.Error("创建邮件检查任务失败: " + err.Error())
			return
		}
	}

	c.Start()
	defer c.Stop()

	// 数据目录落地新文件时立即重跑
	if cfg.WatchDir != "" {
		monitor, err := file.NewFileMonitor(cfg.WatchDir)
		if err != nil {
			logger.Error("启动文件监控失败: " + err.Error())
		} else {
			defer monitor.Close()
			go func() {
				err := monitor.Watch(func(filePath string) {
					logger.Info("检测到新数据文件: " + filePath)
					if err := runPipeline(cfg, dcfg, logger); err != nil {
						logger.Error("文件触发分析失败: " + err.Error())
					}
				})
				if err != nil {
					logger.Error("文件监控异常退出: " + err.Error())
				}
			}()
		}
	}

	if cfg.RefreshInterval == 0 && cfg.WatchDir == "" &&
		(cfg.Email.Server == "" || cfg.Email.CheckInterval == 0) {
		// 没有任何常驻任务，单次运行后直接退出
		logger.Close()
		return
	}

	logger.Info("分析服务已启动，按Ctrl+C退出")
	waitForShutdown(logger)
}

// runPipeline 读取→清洗→分析→导出→推送 的一次完整流程
func runPipeline(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) error {
	start := time.Now()

	if cfg.LogMaxSize != "" {
		if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
			logger.Warning("日志轮转检查失败: " + err.Error())
		}
	}

	dataset, err := file.LoadDataset(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("加载数据集失败: %w", err)
	}
	logger.Info(fmt.Sprintf("数据加载完成: trips=%d stations=%d maintenance=%d 行",
		dataset.Trips.Nrow(), dataset.Stations.Nrow(), dataset.Maintenance.Nrow()))

	result, err := processor.Clean(dataset.Trips, dataset.Stations, dataset.Maintenance)
	if err != nil {
		return fmt.Errorf("清洗失败: %w", err)
	}
	logger.Info(fmt.Sprintf("清洗完成: 保留trips=%d stations=%d maintenance=%d 行，审计=%v",
		len(result.Tables.Trips), len(result.Tables.Stations),
		len(result.Tables.Maintenance), result.Audit))

	analytics := processor.NewAnalytics(result.Tables)
	analytics.StationLimit = dcfg.TopStations
	analytics.UserLimit = dcfg.TopUsers
	analytics.RouteLimit = dcfg.TopRoutes
	analytics.MaintenanceLimit = dcfg.TopMaintenance

	assembler := report.NewAssembler(cfg.OutputDir, logger)
	summaryPath, err := assembler.WriteSummary(analytics, result.Audit)
	if err != nil {
		return err
	}
	if err := assembler.ExportCleanTables(result); err != nil {
		return err
	}
	if err := assembler.ExportTopLists(analytics); err != nil {
		return err
	}
	if err := assembler.ExportExcel(result); err != nil {
		return err
	}

	// 推送与邮件发送失败只告警，不中断流程
	if cfg.WebhookURL != "" {
		pusher := datapush.NewPusher(cfg.WebhookURL)
		if err := pusher.PushDailySummary(analytics); err != nil {
			logger.Error("推送日报失败: " + err.Error())
		}
	}

	if cfg.SendEmail.Server != "" && len(cfg.SendEmail.To) > 0 {
		attachments := []string{
			summaryPath,
			filepath.Join(cfg.OutputDir, "trips_clean.xlsx"),
		}
		body := report.FormatSummary(analytics, result.Audit)
		if err := email.SendReport(cfg, body, attachments); err != nil {
			logger.Error("发送报告邮件失败: " + err.Error())
		} else {
			logger.Info("报告邮件已发送至 " + strings.Join(cfg.SendEmail.To, ", "))
		}
	}

	logger.Info(fmt.Sprintf("本轮分析完成，耗时: %v", time.Since(start)))
	return nil
}

func waitForShutdown(logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("收到信号: " + sig.String() + "，正在退出...")
	logger.Close()
}
