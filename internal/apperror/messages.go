package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Exchange (Binance) errors
	CodeBinanceConnectionFailed: "Failed to connect to Binance",
	CodeBinanceAPIError:         "Binance API error",
	CodeInvalidTicker:           "Malformed book ticker value",

	// Oracle (Pyth) errors
	CodeOracleConnectionFailed: "Failed to connect to the price oracle",
	CodeOracleAPIError:         "Price oracle API error",
	CodeOracleFeedNotFound:     "Price feed not found",
	CodeContractCallFailed:     "Smart contract call failed",
	CodeInvalidOraclePrice:     "Oracle price does not fit the working width",

	// Detection errors
	CodeInvalidOpportunity: "Opportunity is not valid",

	// Reporting errors
	CodeRedisPublishFailed: "Failed to publish signal to Redis",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
