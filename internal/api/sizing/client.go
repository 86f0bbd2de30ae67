package sizing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// 响应体上限
const maxResponseBytes = 1 << 20

// Options 客户端参数
type Options struct {
	Timeout         time.Duration
	BreakerFailures int
	BreakerOpen     time.Duration
}

// Client 计算服务客户端
type Client struct {
	httpClient *http.Client
	apiHost    string
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient 创建计算服务客户端
func NewClient(apiHost string, opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BreakerFailures < 1 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerOpen <= 0 {
		opts.BreakerOpen = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		apiHost: strings.TrimRight(strings.TrimSpace(apiHost), "/"),
		logger:  logger,
	}

	failures := uint32(opts.BreakerFailures)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sizing-service",
		Timeout: opts.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 服务有应答但结构不符不计入熔断
		IsSuccessful: func(err error) bool {
			var me *MalformedResponseError
			return err == nil || errors.As(err, &me)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c
}

// Submit 提交一次计算，不重试
func (c *Client) Submit(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: "encode", Err: err}
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.calculate(ctx, body)
	})
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return nil, te
		}
		var me *MalformedResponseError
		if errors.As(err, &me) {
			return nil, me
		}
		// 熔断器打开
		return nil, &TransportError{Op: "calculate", Err: err}
	}

	return out.(*Response), nil
}

func (c *Client) calculate(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiHost+"/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "create request", Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SolarSizer/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "calculate", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: "read response", StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Op:         "calculate",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status body=%s", truncate(string(data), 200)),
		}
	}

	return decodeResponse(data, resp.StatusCode)
}

// decodeResponse 非 JSON 视为传输失败，JSON 合法但结构不符视为响应不完整
func decodeResponse(data []byte, status int) (*Response, error) {
	if !json.Valid(data) {
		return nil, &TransportError{Op: "decode response", StatusCode: status, Err: errors.New("body is not JSON")}
	}

	var result Response
	if err := json.Unmarshal(data, &result); err != nil {
		field := "body"
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			field = te.Field
		}
		return nil, &MalformedResponseError{Fields: []string{field}}
	}

	return &result, nil
}

// WaitReady 启动时探测计算服务是否可达，使用指数退避
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	if maxWait <= 0 {
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxWait

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiHost+"/", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Debug("Sizing service not reachable yet", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("sizing service status %d", resp.StatusCode)
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("wait for sizing service: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
