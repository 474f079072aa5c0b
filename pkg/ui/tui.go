// Package ui provides the Bubble Tea TUI for the arbitrage detector.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/pkg/ui/components"
)

// Info describes what the detector is watching.
type Info struct {
	Symbol       string
	FeedID       string
	OracleSource string
	Version      string
}

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var startupOrder = []string{"config", "binance", "oracle"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	info Info
	keys KeyMap
	help help.Model

	// Components
	prices        *components.PricesComponent
	opportunities *components.OpportunitiesComponent
	stats         *components.StatsComponent
	status        *components.StatusComponent

	// Phase state
	phase        Phase
	welcomeStart time.Time
	modulesStart bool

	// State
	quitting   bool
	paused     bool
	width      int
	height     int
	lastUpdate time.Time
	lastScan   time.Time
	errors     []ErrorEntry // Persistent error panel (last 3)
	logs       []string     // Recent log messages

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time
}

// New creates a new TUI model.
func New(info Info) Model {
	now := time.Now()
	return Model{
		info:          info,
		keys:          DefaultKeyMap(),
		help:          help.New(),
		prices:        components.NewPricesComponent(info.Symbol, info.OracleSource),
		opportunities: components.NewOpportunitiesComponent(50, 10),
		stats:         components.NewStatsComponent(),
		status:        components.NewStatusComponent(),
		phase:         PhaseWelcome,
		welcomeStart:  now,
		logs:          make([]string, 0, 5),
		errors:        make([]ErrorEntry, 0, 3),
		startupSteps: map[string]*StartupStep{
			"config":  {Name: "Loading configuration", Status: "done"},
			"binance": {Name: "Connecting to Binance", Status: "pending"},
			"oracle":  {Name: "Connecting to Pyth (" + info.OracleSource + ")", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// leaveWelcome moves to the startup screen and asks main to start modules.
func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if !m.modulesStart && OnStartModules != nil {
		m.modulesStart = true
		// Don't use Send() from within Update
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case OpportunityMsg:
		if msg.Signal == nil {
			break
		}
		opp := msg.Signal.Opportunity

		st := m.stats.Stats()
		st.Opportunities++
		if opp.Direction == domain.DirectionSellOnExchange {
			st.Sells++
		} else {
			st.Buys++
		}
		st.TotalProfit = st.TotalProfit.Add(opp.EstimatedProfit)
		m.stats.Update(st)

		if m.paused {
			break
		}
		m.opportunities.Add(components.OpportunityRow{
			Timestamp:     msg.Signal.DetectedAt.Local().Format("15:04:05"),
			Direction:     opp.Direction.Short(),
			Quantity:      opp.Quantity,
			ExchangePrice: opp.ExchangePrice,
			OraclePrice:   opp.OraclePrice,
			Profit:        opp.EstimatedProfit,
		})
		m.lastUpdate = time.Now()

	case PriceUpdateMsg:
		if msg.Snapshot == nil {
			break
		}
		st := m.stats.Stats()
		st.Scans++
		m.stats.Update(st)
		m.lastScan = time.Now()

		view := BandViewFromSnapshot(msg.Snapshot)
		if view.HasBand && view.HasBook && m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}
		if !m.paused {
			m.prices.Update(view)
			m.lastUpdate = time.Now()
		}

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			DataAge:    msg.Age,
			LastUpdate: time.Now(),
		})

		if step, ok := m.startupSteps[stepKey(msg.Name)]; ok {
			if msg.Connected {
				step.Status = "connected"
			} else {
				step.Status = "connecting"
			}
		}
		if m.phase == PhaseStartup && m.startupDone() {
			m.phase = PhaseDashboard
		}

	case ErrorMsg:
		if msg.Error == nil {
			break
		}
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}
		st := m.stats.Stats()
		st.Errors++
		m.stats.Update(st)

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if m.phase == PhaseStartup && m.startupDone() {
			m.phase = PhaseDashboard
		}
	}

	return m, nil
}

// stepKey maps a feed name to its startup step.
func stepKey(feed string) string {
	if strings.HasPrefix(feed, "pyth") {
		return "oracle"
	}
	return strings.ToLower(feed)
}

func (m Model) startupDone() bool {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return false
		}
	}
	return true
}

// BandViewFromSnapshot converts a detector snapshot for display. The oracle
// price shown is the band midpoint and the confidence its half width.
func BandViewFromSnapshot(s *pricingDomain.PriceSnapshot) components.BandView {
	var v components.BandView
	two := decimal.NewFromInt(2)

	if s.Band != nil {
		v.HasBand = true
		v.Upper = s.Band.Upper
		v.Lower = s.Band.Lower
		v.OraclePrice = s.Band.Upper.Add(s.Band.Lower).Div(two)
		v.Confidence = s.Band.Width().Div(two)
		v.OracleAge = s.OracleAge
	}
	if s.Quote != nil {
		v.HasBook = true
		v.Bid = s.Quote.BidPrice
		v.BidQty = s.Quote.BidQty
		v.Ask = s.Quote.AskPrice
		v.AskQty = s.Quote.AskQty
		v.TickerAge = s.TickerAge
	}
	return v
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	title := TitleStyle.Render(" Oracle Arbitrage Detector ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.prices.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.opportunities.View())
	rightContent.WriteString("\n\n")
	rightContent.WriteString(m.stats.View())
	rightCol := rightContent.String()

	// Side by side if enough width
	if m.width > 120 {
		left := BoxStyle.Width(m.width/3 - 2).Render(leftCol)
		right := BoxStyle.Width(2*m.width/3 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}

	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.logs) > 0 {
		for _, line := range m.logs {
			b.WriteString(MutedValue.Render("  " + line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
		b.WriteString(pauseStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	goldStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorWarning)

	greenStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
    ██████╗ ██████╗  █████╗  ██████╗██╗     ███████╗
   ██╔═══██╗██╔══██╗██╔══██╗██╔════╝██║     ██╔════╝
   ██║   ██║██████╔╝███████║██║     ██║     █████╗
   ██║   ██║██╔══██╗██╔══██║██║     ██║     ██╔══╝
   ╚██████╔╝██║  ██║██║  ██║╚██████╗███████╗███████╗
    ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚══════╝╚══════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")

	sb.WriteString(MutedValue.Render("           A R B I T R A G E   D E T E C T O R"))
	sb.WriteString("\n\n\n")

	sb.WriteString(goldStyle.Render(fmt.Sprintf("              %s  vs  Pyth %s", m.info.Symbol, m.info.OracleSource)))
	sb.WriteString("\n\n\n")

	sb.WriteString(greenStyle.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")

	sb.WriteString(MutedValue.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF"))

	successStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	failedStyle := lipgloss.NewStyle().Foreground(ColorDanger)

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  Oracle Arbitrage Detector"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon = "✓"
			statusText = "Ready"
			style = successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon = spinners[idx]
			statusText = "Connecting..."
			style = connectingStyle
		case "failed":
			icon = "✗"
			statusText = "Failed"
			style = failedStyle
		default:
			icon = "○"
			statusText = "Pending"
			style = MutedValue
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedValue.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("  Waiting for the first oracle price and book ticker..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastScan) < 500*time.Millisecond {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		scanningStyle := lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
		parts = append(parts, scanningStyle.Render(spinners[idx]+" Scanning"))
	}

	parts = append(parts, m.status.View())

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// Run starts the Bubble Tea program and blocks until it exits.
func Run(info Info) error {
	Program = tea.NewProgram(New(info), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}

// Quit stops the running program.
func Quit() {
	if Program != nil {
		Program.Quit()
	}
}
