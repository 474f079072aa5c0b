package pyth

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apm"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/oracle-arbitrage-bot/internal/httpclient"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
	"github.com/fd1az/oracle-arbitrage-bot/internal/ratelimit"
)

var _ app.OracleFetcher = (*HTTPClient)(nil)

const (
	// DefaultHermesHTTPURL is the public Hermes REST endpoint.
	DefaultHermesHTTPURL = "https://hermes.pyth.network"

	latestPriceEndpoint = "/v2/updates/price/latest"

	httpTimeout = 10 * time.Second
)

// HTTPClientConfig holds configuration for the Hermes REST client.
type HTTPClientConfig struct {
	BaseURL           string
	FeedID            string
	Timeout           time.Duration
	RequestsPerMinute int
}

// HTTPClient reads the latest price for one feed from the Hermes REST API,
// rate limited and behind a circuit breaker.
type HTTPClient struct {
	client  httpclient.Client
	feedID  string
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[domain.PriceObservation]
	logger  logger.LoggerInterface
	tracer  apm.Tracer
}

// NewHTTPClient creates the Hermes REST client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultHermesHTTPURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 120
	}

	tracer := apm.NewTracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("hermes"),
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

	cbCfg := circuitbreaker.DefaultConfig("hermes-http")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
	}

	return &HTTPClient{
		client:  client,
		feedID:  FormatFeedID(cfg.FeedID),
		limiter: ratelimit.New(rpm),
		cb:      circuitbreaker.New[domain.PriceObservation](cbCfg),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// LatestPrice fetches the current price for the configured feed.
func (c *HTTPClient) LatestPrice(ctx context.Context) (domain.PriceObservation, error) {
	ctx, span := c.tracer.StartSpanFromContext(ctx, "pyth.hermes.latest_price",
		trace.WithAttributes(attribute.String("feed_id", c.feedID)),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.NoticeError(err)
		return domain.PriceObservation{}, err
	}

	obs, err := c.cb.Execute(func() (domain.PriceObservation, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		span.NoticeError(err)
		return domain.PriceObservation{}, err
	}

	span.SetAttributes(
		attribute.Int64("price", obs.Mantissa),
		attribute.Int("expo", int(obs.Exponent)),
	)
	return obs, nil
}

func (c *HTTPClient) fetch(ctx context.Context) (domain.PriceObservation, error) {
	var result LatestPriceResponse
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "latest_price")),
	).
		AddQueryParam("ids[]", c.feedID).
		SetQueryParam("parsed", "true").
		SetResult(&result).
		Get(ctx, latestPriceEndpoint)
	if err != nil {
		return domain.PriceObservation{}, apperror.External(apperror.CodeOracleConnectionFailed,
			"failed to fetch latest price from Hermes", err)
	}

	if resp.IsError() {
		code := apperror.CodeOracleAPIError
		if resp.StatusCode == 404 {
			code = apperror.CodeOracleFeedNotFound
		}
		return domain.PriceObservation{}, apperror.New(code,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	for i := range result.Parsed {
		if NormalizeFeedID(result.Parsed[i].ID) == NormalizeFeedID(c.feedID) {
			return result.Parsed[i].ToDomain()
		}
	}

	return domain.PriceObservation{}, apperror.New(apperror.CodeOracleFeedNotFound,
		apperror.WithContext(c.feedID))
}
