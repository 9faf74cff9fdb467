package feeder

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"hydronom-sim/internal/config"
	"hydronom-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the record viewport.
type logMsg struct{ line string }

// recordMsg carries the record behind the last log line.
type recordMsg struct{ telemetry.Record }

// adminMsg reports the admin server address, empty when disabled.
type adminMsg struct{ addr string }

const (
	maxSectionHeightPct = 0.2
	maxLogLines         = 500
	socHistoryLen       = 40
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// TUIWriter renders telemetry using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
// Quitting the TUI interrupts the process so the feed stops with it.
func NewTUIWriter(cfg *config.RunConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.Record) error {
	w.program.Send(logMsg{line: formatRecordLine(row)})
	w.program.Send(recordMsg{row})
	return nil
}

// SetAdminAddr shows where the admin server listens.
func (w *TUIWriter) SetAdminAddr(addr string) {
	w.program.Send(adminMsg{addr: addr})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

func formatRecordLine(row telemetry.Record) string {
	line := fmt.Sprintf("%s[%s]%s %swp=%d%s %slat=%.5f lon=%.5f%s %shdg=%.1f spd=%.2f%s %sdepth=%.1f%s %sbatt=%.2fV %.1f%%%s %stemp=%.1f%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorMagenta, row.Mission.WaypointIndex, colorReset,
		colorGreen, row.Pose.Lat, row.Pose.Lon, colorReset,
		colorCyan, row.Pose.HeadingDeg, row.Pose.SpeedMPS, colorReset,
		colorBlue, row.DepthM, colorReset,
		colorYellow, row.Battery.Voltage, row.Battery.SocPct, colorReset,
		colorYellow, row.TempC, colorReset,
	)
	if row.Leak {
		line += fmt.Sprintf(" %sLEAK%s", colorRed, colorReset)
	}
	return line
}

type tuiModel struct {
	cfg        *config.RunConfig
	table      table.Model
	vp         viewport.Model
	alertVP    viewport.Model
	logs       []string
	alerts     []string
	active     map[telemetry.Alert]bool
	alertCount map[telemetry.Alert]int
	last       *telemetry.Record
	records    int
	socHistory []float64
	admin      string
	wrap       bool
	autoscroll bool
	help       bool
	header     string
	height     int
}

func newTUIModel(cfg *config.RunConfig) tuiModel {
	if cfg == nil {
		d := config.Defaults()
		cfg = &d
	}
	cols := []table.Column{
		{Title: "Setting", Width: 18},
		{Title: "Value", Width: 16},
		{Title: "Setting", Width: 18},
		{Title: "Value", Width: 16},
	}
	rows := []table.Row{
		{"Vehicle", cfg.VehicleID, "Class", string(cfg.Class())},
		{"Rate (Hz)", fmt.Sprintf("%d", cfg.Hz), "Period", Period(cfg.Hz).String()},
		{"Leak After", onset(cfg.LeakAfter()), "Low Battery After", onset(cfg.LowBatteryAfter())},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		alertVP:    viewport.New(0, 0),
		active:     make(map[telemetry.Alert]bool),
		alertCount: make(map[telemetry.Alert]int),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.alertVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshAlerts()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "?", "h":
			m.help = true
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.alertVP.GotoBottom()
			}
			return m, nil
		}
		if !m.autoscroll {
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case recordMsg:
		m.observe(msg.Record)
		m.updateViewportHeight()
		m.refreshAlerts()
	case adminMsg:
		m.admin = msg.addr
		m.header = m.renderHeader()
		m.updateViewportHeight()
	}
	return m, nil
}

// observe folds a record into the panel state and logs alert onsets.
func (m *tuiModel) observe(rec telemetry.Record) {
	m.records++
	last := rec
	m.last = &last
	m.socHistory = append(m.socHistory, rec.Battery.SocPct)
	if len(m.socHistory) > socHistoryLen {
		m.socHistory = m.socHistory[len(m.socHistory)-socHistoryLen:]
	}

	now := make(map[telemetry.Alert]bool)
	for _, a := range telemetry.Alerts(rec) {
		now[a] = true
		m.alertCount[a]++
		if !m.active[a] {
			m.alerts = append(m.alerts, fmt.Sprintf("[%s] %s %s",
				rec.Timestamp.Format(time.RFC3339), alertStyle.Render(string(a)), describeAlert(a, rec)))
		}
	}
	m.active = now
}

func describeAlert(a telemetry.Alert, rec telemetry.Record) string {
	switch a {
	case telemetry.AlertLeak:
		return "water ingress detected"
	case telemetry.AlertLowVolt:
		return fmt.Sprintf("voltage %.2fV", rec.Battery.Voltage)
	case telemetry.AlertHighTemp:
		return fmt.Sprintf("temperature %.1fC", rec.TempC)
	case telemetry.AlertLowSoc:
		return fmt.Sprintf("state of charge %.1f%%", rec.Battery.SocPct)
	}
	return ""
}

func (m *tuiModel) updateViewportHeight() {
	statsHeight := lipgloss.Height(m.renderStats())
	alertLines := len(m.alerts)
	if alertLines == 0 {
		alertLines = 1
	}
	if maxLines := m.maxSectionLines(); alertLines > maxLines {
		alertLines = maxLines
	}
	m.alertVP.Height = alertLines

	h := m.height - lipgloss.Height(m.header) - statsHeight - (1 + m.alertVP.Height) - 5
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.alertVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	m.vp.SetContent(m.renderLogs())
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderLogs() string {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	return strings.Join(lines, "\n")
}

func (m *tuiModel) refreshAlerts() {
	content := okStyle.Render("none")
	if len(m.alerts) > 0 {
		content = strings.Join(m.alerts, "\n")
	}
	m.alertVP.SetContent(content)
	if m.autoscroll {
		m.alertVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.renderStats(),
		divider,
		m.vp.View(),
		divider,
		"Alerts:",
		m.alertVP.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	title := titleStyle.Render("Hydronom Telemetry")
	if m.admin != "" {
		title += labelStyle.Render("  admin " + m.admin)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View())
}

// renderStats mirrors the dashboard cards: one labelled value per sensor group.
func (m tuiModel) renderStats() string {
	if m.last == nil {
		return labelStyle.Render("waiting for telemetry...")
	}
	r := m.last
	card := func(label, value string, alert bool) string {
		v := okStyle.Render(value)
		if alert {
			v = alertStyle.Render(value)
		}
		return lipgloss.NewStyle().PaddingRight(3).Render(labelStyle.Render(label) + "\n" + v)
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Speed", fmt.Sprintf("%.2f m/s", r.Pose.SpeedMPS), false),
		card("Heading", fmt.Sprintf("%.1f° %s", r.Pose.HeadingDeg, headingIcon(r.Pose.HeadingDeg)), false),
		card("Depth", fmt.Sprintf("%.1f m", r.DepthM), false),
		card("Voltage", fmt.Sprintf("%.2f V", r.Battery.Voltage), m.active[telemetry.AlertLowVolt]),
		card("SOC", fmt.Sprintf("%.1f %%", r.Battery.SocPct), m.active[telemetry.AlertLowSoc]),
		card("Temp", fmt.Sprintf("%.1f C", r.TempC), m.active[telemetry.AlertHighTemp]),
		card("Leak", yesNo(r.Leak), r.Leak),
	)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top,
		card("IMU r/p/y", fmt.Sprintf("%.1f / %.1f / %.1f", r.IMU.RollDeg, r.IMU.PitchDeg, r.IMU.YawDeg), false),
		card("Thrusters L/R", fmt.Sprintf("%d / %d", r.Thrusters.LeftPWM, r.Thrusters.RightPWM), false),
		card("Rudder", fmt.Sprintf("%.1f°", r.RudderDeg), false),
		card("Ballast", fmt.Sprintf("%d %%", r.Ballast.LevelPct), false),
		card("Waypoint", fmt.Sprintf("%d (%s)", r.Mission.WaypointIndex, r.Mission.TaskID), false),
	)
	trend := labelStyle.Render("SOC trend ") + sparkline(m.socHistory, 0, 100)
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2, trend)
}

func (m tuiModel) renderBottom() string {
	var parts []string
	for _, a := range []telemetry.Alert{telemetry.AlertLeak, telemetry.AlertLowVolt, telemetry.AlertHighTemp, telemetry.AlertLowSoc} {
		parts = append(parts, fmt.Sprintf("%s=%d", a, m.alertCount[a]))
	}
	scroll := "on"
	if !m.autoscroll {
		scroll = "off"
	}
	return fmt.Sprintf("records=%d  %s  autoscroll=%s  [q]uit [w]rap [s]croll [?]help",
		m.records, strings.Join(parts, " "), scroll)
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		titleStyle.Render("Keys"),
		" q, ctrl+c         quit and stop the feed",
		" w                 toggle line wrap",
		" s                 toggle auto-scroll",
		" ?, h              toggle this help",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "no"
}

func headingIcon(h float64) string {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	switch {
	case h >= 45 && h < 135:
		return ">"
	case h >= 135 && h < 225:
		return "v"
	case h >= 225 && h < 315:
		return "<"
	default:
		return "^"
	}
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline scales vals into [lo, hi] and renders one rune per value.
func sparkline(vals []float64, lo, hi float64) string {
	if len(vals) == 0 || hi <= lo {
		return ""
	}
	var b strings.Builder
	for _, v := range vals {
		f := (v - lo) / (hi - lo)
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		b.WriteRune(sparkRunes[int(math.Round(f*float64(len(sparkRunes)-1)))])
	}
	return b.String()
}
