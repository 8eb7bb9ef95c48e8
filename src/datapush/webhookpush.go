package datapush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"CityBikeAnalytics/src/processor"
)

// 机器人推送：分析完成后把摘要指标推到群机器人webhook，
// 推送失败不影响主流程，由调用方决定是否重试告警。

const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
	PushTimeout    = 10 * time.Second
)

// WebhookResponse 机器人webhook通用响应
type WebhookResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Pusher 群机器人推送器
type Pusher struct {
	webhookURL string
	client     *http.Client
}

func NewPusher(webhookURL string) *Pusher {
	return &Pusher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: PushTimeout},
	}
}

// PushText 推送一条文本消息
func (p *Pusher) PushText(content string) error {
	payload := map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": content,
		},
	}
	return p.post(payload)
}

// PushDailySummary 推送当日核心运营指标
func (p *Pusher) PushDailySummary(a *processor.Analytics) error {
	summary := a.TripSummary()
	completion := a.CompletionRate()
	util := a.BikeUtilization()
	peak := a.PeakDay()

	content := fmt.Sprintf(
		"共享单车日报\n骑行: %d 次 / %.2f km\n平均时长: %.2f 分钟\n完成率: %.2f%%\n车辆利用率: %.2f%%\n高峰日: %s (%d 次)",
		summary.TotalTrips, summary.TotalDistanceKm, summary.AvgDurationMinutes,
		completion.RatePct, util.UtilizationPct, peak.Date, peak.Count,
	)

	return Retry(func() error {
		return p.PushText(content)
	}, RETRY_TIMES, RETRY_INTERVAL)
}

func (p *Pusher) post(payload map[string]interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	req, err := http.NewRequest("POST", p.webhookURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook返回状态 %d: %s", resp.StatusCode, string(respBody))
	}

	var result WebhookResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("推送消息失败: %s", result.ErrMsg)
	}

	return nil
}

// Retry 固定间隔重试
func Retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}
