package pyth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apm"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

var _ app.OracleFetcher = (*EVMReader)(nil)

// ContractCaller is the subset of ethclient.Client used for reads.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type evmMetrics struct {
	callsTotal  metric.Int64Counter
	callLatency metric.Float64Histogram
	callErrors  metric.Int64Counter
}

// EVMReader reads a price straight from the on-chain Pyth contract.
type EVMReader struct {
	caller   ContractCaller
	contract common.Address
	feedID   [32]byte
	feedHex  string
	pythABI  abi.ABI

	cb     *circuitbreaker.CircuitBreaker[[]byte]
	logger logger.LoggerInterface

	tracer  apm.Tracer
	metrics *evmMetrics
}

// NewEVMReader creates a reader for feedID on the contract at address.
func NewEVMReader(caller ContractCaller, contract common.Address, feedID string, log logger.LoggerInterface) (*EVMReader, error) {
	parsedABI, err := abi.JSON(strings.NewReader(PythABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pyth ABI: %w", err)
	}

	raw, err := hexutil.Decode(FormatFeedID(feedID))
	if err != nil || len(raw) != 32 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("feed id must be 32 bytes of hex"))
	}

	r := &EVMReader{
		caller:   caller,
		contract: contract,
		feedHex:  FormatFeedID(feedID),
		pythABI:  parsedABI,
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("pyth-evm")),
		logger:   log,
		tracer:   apm.NewTracer(tracerName),
	}
	copy(r.feedID[:], raw)

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return r, nil
}

func (r *EVMReader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &evmMetrics{}

	r.metrics.callsTotal, err = meter.Int64Counter(
		"pyth_evm_calls_total",
		metric.WithDescription("Total getPriceUnsafe calls"),
	)
	if err != nil {
		return err
	}

	r.metrics.callLatency, err = meter.Float64Histogram(
		"pyth_evm_call_latency_ms",
		metric.WithDescription("getPriceUnsafe latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	r.metrics.callErrors, err = meter.Int64Counter(
		"pyth_evm_call_errors_total",
		metric.WithDescription("Failed getPriceUnsafe calls"),
	)
	if err != nil {
		return err
	}

	return nil
}

// LatestPrice calls getPriceUnsafe and converts the result.
func (r *EVMReader) LatestPrice(ctx context.Context) (domain.PriceObservation, error) {
	ctx, span := r.tracer.StartSpanFromContext(ctx, "pyth.evm.get_price",
		trace.WithAttributes(
			attribute.String("feed_id", r.feedHex),
			attribute.String("contract", r.contract.Hex()),
		),
	)
	defer span.End()

	start := time.Now()
	r.metrics.callsTotal.Add(ctx, 1)

	obs, err := r.call(ctx)

	r.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		r.metrics.callErrors.Add(ctx, 1)
		span.NoticeError(err)
		return domain.PriceObservation{}, err
	}

	span.SetAttributes(
		attribute.Int64("price", obs.Mantissa),
		attribute.Int("expo", int(obs.Exponent)),
	)
	span.SetStatus(codes.Ok, "price read")
	return obs, nil
}

func (r *EVMReader) call(ctx context.Context) (domain.PriceObservation, error) {
	callData, err := r.pythABI.Pack(getPriceUnsafe, r.feedID)
	if err != nil {
		return domain.PriceObservation{}, apperror.Wrap(err, apperror.CodeContractCallFailed, "failed to encode call")
	}

	result, err := r.cb.Execute(func() ([]byte, error) {
		return r.caller.CallContract(ctx, ethereum.CallMsg{
			To:   &r.contract,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return domain.PriceObservation{}, apperror.External(apperror.CodeContractCallFailed,
			"getPriceUnsafe failed", err)
	}

	outputs, err := r.pythABI.Unpack(getPriceUnsafe, result)
	if err != nil {
		return domain.PriceObservation{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode getPriceUnsafe result"))
	}
	if len(outputs) != 1 {
		return domain.PriceObservation{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("unexpected output length: %d", len(outputs))))
	}

	price := *abi.ConvertType(outputs[0], new(PythPrice)).(*PythPrice)

	var publishTime int64
	if price.PublishTime != nil && price.PublishTime.IsInt64() {
		publishTime = price.PublishTime.Int64()
	}

	return domain.PriceObservation{
		Mantissa:    price.Price,
		Exponent:    price.Expo,
		Confidence:  price.Conf,
		FeedID:      r.feedHex,
		PublishTime: time.Unix(publishTime, 0).UTC(),
	}, nil
}
