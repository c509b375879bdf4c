package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"

	"github.com/rudderlabs/rudder-telemetry/flusher"
	"github.com/rudderlabs/rudder-telemetry/jsonrs"
	"github.com/rudderlabs/rudder-telemetry/utils/httputil"
)

// Client sends batch requests to the remote collector over HTTP. Sends are
// at-most-once: a failed batch is reported as an error and picked up again by
// a future flush cycle, never retried here.
type Client struct {
	netClient *http.Client
	url       string
	log       logger.Logger
	stats     stats.Stats

	reqLatency stats.Measurement
	reqCount   stats.Measurement
}

func NewClient(conf *config.Config, log logger.Logger, stat stats.Stats) *Client {
	tr := &http.Transport{}
	c := &Client{
		netClient: &http.Client{
			Transport: tr,
			Timeout:   conf.GetDurationVar(30, time.Second, "HttpClient.collector.timeout"),
		},
		url:   conf.GetStringVar("http://localhost:8500/v1/batch", "Collector.url"),
		log:   log,
		stats: stat,
	}
	c.initStats()
	return c
}

func (c *Client) initStats() {
	c.reqLatency = c.stats.NewStat("collector_http_request_duration_seconds", stats.TimerType)
	c.reqCount = c.stats.NewStat("collector_http_requests_total", stats.CountType)
}

// Send posts one batch request to the collector. Success means a 2xx
// response; anything else, including transport errors, is returned as an
// error.
func (c *Client) Send(ctx context.Context, request *flusher.BatchRequest) error {
	payload, err := jsonrs.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshalling batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("creating batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	start := time.Now()
	resp, err := c.netClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending batch request: %w", err)
	}
	c.reqLatency.Since(start)
	c.reqCount.Count(1)

	defer func() { httputil.CloseResponse(resp) }()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		detail := gjson.GetBytes(respBody, "error").String()
		if detail == "" {
			detail = string(respBody)
		}
		return fmt.Errorf("collector returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
