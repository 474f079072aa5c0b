// Package ui provides the Bubble Tea TUI for the arbitrage detector.
package ui

import (
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
)

// Message types for TUI updates

// OpportunityMsg is sent when an arbitrage opportunity is detected.
type OpportunityMsg struct {
	Signal *domain.Signal
}

// PriceUpdateMsg is sent after each detection pass.
type PriceUpdateMsg struct {
	Snapshot *pricingDomain.PriceSnapshot
}

// ConnectionStatusMsg is sent with a feed's connection state.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Age       time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}
