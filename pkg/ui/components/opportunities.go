// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow represents an opportunity in the list.
type OpportunityRow struct {
	Timestamp     string
	Direction     string
	Quantity      decimal.Decimal
	ExchangePrice decimal.Decimal
	OraclePrice   decimal.Decimal
	Profit        decimal.Decimal
}

// OpportunitiesComponent renders the opportunities list, newest first.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	visible int
	offset  int
}

// NewOpportunitiesComponent keeps up to maxRows rows and shows visible at once.
func NewOpportunitiesComponent(maxRows, visible int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add adds a new opportunity to the top of the list.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
	if o.offset > 0 {
		o.offset++
	}
	o.clamp()
}

// Len returns the number of stored rows.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp moves the window towards newer rows.
func (o *OpportunitiesComponent) ScrollUp() {
	o.offset--
	o.clamp()
}

// ScrollDown moves the window towards older rows.
func (o *OpportunitiesComponent) ScrollDown() {
	o.offset++
	o.clamp()
}

func (o *OpportunitiesComponent) clamp() {
	maxOffset := len(o.rows) - o.visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if o.offset > maxOffset {
		o.offset = maxOffset
	}
	if o.offset < 0 {
		o.offset = 0
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	if len(o.rows) == 0 {
		return "No opportunities detected yet..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	sellStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	buyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d)", len(o.rows))))
	sb.WriteString("\n")
	sb.WriteString("┌──────────┬──────┬────────────┬──────────────┬──────────────┬──────────────┐\n")
	sb.WriteString("│   Time   │ Side │  Quantity  │   Exchange   │ Oracle edge  │ Est. profit  │\n")
	sb.WriteString("├──────────┼──────┼────────────┼──────────────┼──────────────┼──────────────┤\n")

	end := min(o.offset+o.visible, len(o.rows))
	for _, row := range o.rows[o.offset:end] {
		sideStyle := buyStyle
		if row.Direction == "SELL" {
			sideStyle = sellStyle
		}
		sb.WriteString(fmt.Sprintf("│ %8s │ %s │%11s │%13s │%13s │%13s │\n",
			row.Timestamp,
			sideStyle.Render(fmt.Sprintf("%-4s", row.Direction)),
			row.Quantity.String(),
			row.ExchangePrice.String(),
			row.OraclePrice.StringFixed(4),
			row.Profit.StringFixed(6),
		))
	}

	sb.WriteString("└──────────┴──────┴────────────┴──────────────┴──────────────┴──────────────┘")
	if len(o.rows) > o.visible {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  rows %d-%d of %d", o.offset+1, end, len(o.rows))))
	}

	return sb.String()
}
