package datapush

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CityBikeAnalytics/src/processor"
)

func TestPushText(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer server.Close()

	p := NewPusher(server.URL)
	require.NoError(t, p.PushText("测试消息"))

	assert.Equal(t, "text", received["msgtype"])
	text := received["text"].(map[string]interface{})
	assert.Equal(t, "测试消息", text["content"])
}

func TestPushTextServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":310000,"errmsg":"invalid webhook"}`))
	}))
	defer server.Close()

	p := NewPusher(server.URL)
	err := p.PushText("测试消息")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid webhook")
}

func TestPushDailySummary(t *testing.T) {
	var content string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		content = payload["text"].(map[string]interface{})["content"].(string)
		w.Write([]byte(`{"errcode":0}`))
	}))
	defer server.Close()

	tables := processor.Tables{
		Trips: []processor.Trip{
			{
				TripID: "T1", UserID: "U1", BikeID: "B1",
				StartTime:       time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
				EndTime:         time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC),
				DurationMinutes: 30, DistanceKm: 5,
				Status: processor.StatusCompleted,
			},
		},
	}

	p := NewPusher(server.URL)
	require.NoError(t, p.PushDailySummary(processor.NewAnalytics(tables)))

	assert.Contains(t, content, "共享单车日报")
	assert.Contains(t, content, "骑行: 1 次")
	assert.Contains(t, content, "2024-06-01")
}

func TestRetry(t *testing.T) {
	attempts := 0
	err := Retry(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("临时失败")
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = Retry(func() error {
		attempts++
		return errors.New("永久失败")
	}, 3, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}
