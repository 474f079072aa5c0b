package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apm"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/httpclient"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

var _ app.TickerFetcher = (*HTTPClient)(nil)

const (
	// Binance REST API endpoints
	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	bookTickerEndpoint = "/api/v3/ticker/bookTicker"

	httpTimeout = 10 * time.Second
)

// HTTPClientConfig holds configuration for the Binance HTTP client.
type HTTPClientConfig struct {
	BaseURL string        // API base URL (empty = default)
	Timeout time.Duration // Request timeout
}

// HTTPClient provides Binance REST API access for fallback scenarios.
type HTTPClient struct {
	client httpclient.Client
	logger logger.LoggerInterface
	tracer apm.Tracer
}

// NewHTTPClient creates a new Binance HTTP client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := apm.NewTracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer.GetTracer(), httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &HTTPClient{
		client: client,
		logger: log,
		tracer: tracer,
	}, nil
}

// BookTicker fetches the best bid/ask for a symbol via REST. Used when the
// WebSocket data is stale or missing.
func (c *HTTPClient) BookTicker(ctx context.Context, symbol string) (domain.BookTicker, error) {
	ctx, span := c.tracer.StartSpanFromContext(ctx, "binance.http.book_ticker",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	var result BookTickerResponse
	_, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "bookTicker"),
			httpclient.NewLabel("symbol", symbol),
		),
		httpclient.WithResponseErrorHandler(binanceErrorHandler),
	).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get(ctx, bookTickerEndpoint)

	if err != nil {
		span.NoticeError(err)
		code := apperror.CodeBinanceConnectionFailed
		var apiErr *BinanceAPIError
		if errors.As(err, &apiErr) {
			code = apperror.CodeBinanceAPIError
		}
		return domain.BookTicker{}, apperror.New(code,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch bookTicker from REST API"))
	}

	c.logger.Debug(ctx, "fetched book ticker via HTTP",
		"symbol", result.Symbol,
		"bid", result.BidPrice,
		"ask", result.AskPrice)

	return result.ToDomain(), nil
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr BinanceAPIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
