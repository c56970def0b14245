package sim

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/scenario"
	"gauntlet-sim/internal/telemetry"
)

// teaProgram is the part of bubbletea.Program the writer needs, kept
// narrow so tests can swap in a recorder.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries an actor telemetry line for the viewport.
type logMsg struct{ line string }

// actorMsg carries raw actor data for the map and counters.
type actorMsg struct{ telemetry.ActorRow }

// eventMsg carries a detection event line and row data.
type eventMsg struct {
	line string
	row  telemetry.EventRow
}

// alertMsg carries an alert line.
type alertMsg struct{ line string }

// runMsg carries a resolved run line and its verdict.
type runMsg struct {
	line    string
	verdict string
}

// adminMsg reports admin API status.
type adminMsg struct{ active bool }

type setInjectMsg struct{ fn func(rules.Spec) }

const (
	fallbackRuleInput   = "tui-hc,high_confidence_sighting,0.85"
	maxSectionHeightPct = 0.2
	maxLogLines         = 1000
	minMapSpan          = 0.0001
	degPerMeterLat      = 1.0 / 111194.9
)

// TUIWriter renders the run in a bubbletea dashboard.
type TUIWriter struct {
	program      teaProgram
	sensorColors map[string]string
	colorIdx     int
	done         chan struct{}
	sendSignal   atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(scn *scenario.Scenario) *TUIWriter {
	sc := make(map[string]string)
	w := &TUIWriter{sensorColors: sc, done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(scn, sc)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	for _, s := range scn.Sensors {
		w.getSensorColor(s.ID)
	}
	go func() {
		_ = p.Start()
		close(w.done)
		if !w.sendSignal.Load() {
			return
		}
		if proc, err := os.FindProcess(os.Getpid()); err == nil {
			_ = proc.Signal(os.Interrupt)
		}
	}()
	return w
}

func (w *TUIWriter) getSensorColor(id string) string {
	if c, ok := w.sensorColors[id]; ok {
		return c
	}
	c := sensorPalette[w.colorIdx%len(sensorPalette)]
	w.sensorColors[id] = c
	w.colorIdx++
	return c
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.ActorRow) error {
	actorColor := colorGreen
	if row.ActorType == string(actor.TypeAdversary) {
		actorColor = colorRed
	}
	line := fmt.Sprintf("%s[%s]%s %stick=%d%s %sactor=%s%s %stype=%s%s %slat=%.5f%s %slon=%.5f%s %sidx=%d%s %sgps=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, row.Tick, colorReset,
		colorWhite(), row.ActorID, colorReset,
		actorColor, row.ActorType, colorReset,
		colorGreen, row.Lat, colorReset,
		colorYellow, row.Lon, colorReset,
		colorMagenta, row.PathIndex, colorReset,
		colorCyan, row.GPSMode, colorReset,
	)
	w.program.Send(logMsg{line: line})
	w.program.Send(actorMsg{row})
	return nil
}

// WriteBatch outputs multiple actor rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.ActorRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(row telemetry.EventRow) error {
	sCol := w.getSensorColor(row.SensorID)
	line := fmt.Sprintf("%s[%s]%s %sEVENT%s %ssensor=%s%s %sactor=%s%s %sconf=%.2f%s %slat=%.5f%s %slon=%.5f%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorCyan, colorReset,
		sCol, row.SensorID, colorReset,
		colorWhite(), row.ActorID, colorReset,
		colorGreen, row.Confidence, colorReset,
		colorGreen, row.Lat, colorReset,
		colorYellow, row.Lon, colorReset)
	w.program.Send(eventMsg{line: line, row: row})
	return nil
}

// WriteEvents outputs multiple event rows.
func (w *TUIWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// WriteAlert implements AlertWriter.
func (w *TUIWriter) WriteAlert(row telemetry.AlertRow) error {
	levelColor := colorYellow
	if row.Level == string(rules.LevelCritical) {
		levelColor = colorRed
	}
	line := fmt.Sprintf("%s[%s]%s %sALERT%s %srule=%s%s %slevel=%s%s events=%d %s%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset,
		colorWhite(), row.RuleID, colorReset,
		levelColor, row.Level, colorReset,
		len(row.Events),
		colorGray, row.Message, colorReset)
	w.program.Send(alertMsg{line: line})
	return nil
}

// WriteAlerts outputs multiple alert rows.
func (w *TUIWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	for _, r := range rows {
		_ = w.WriteAlert(r)
	}
	return nil
}

// WriteRun implements RunWriter.
func (w *TUIWriter) WriteRun(row telemetry.RunRow) error {
	verdictColor := colorGreen
	if row.Verdict == string(VerdictBypassed) {
		verdictColor = colorRed
	}
	line := fmt.Sprintf("%s[%s]%s %sRUN%s round=%d verdict=%s%s%s ticks=%d rules=%d",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorMagenta, colorReset,
		row.Round, verdictColor, row.Verdict, colorReset,
		row.Ticks, row.RuleCount)
	w.program.Send(runMsg{line: line, verdict: row.Verdict})
	return nil
}

// SetAdminStatus updates the admin API indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetRuleInjector registers a callback that pushes a rule into the live
// rule set.
func (w *TUIWriter) SetRuleInjector(fn func(rules.Spec)) {
	w.program.Send(setInjectMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program == nil {
		return nil
	}
	w.program.Send(tea.Quit())
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	scn          *scenario.Scenario
	table        table.Model
	sensorColors map[string]string

	vp        viewport.Model
	eventVP   viewport.Model
	alertVP   viewport.Model
	logs      []string
	eventLogs []string
	alertLogs []string

	admin       bool
	wrap        bool
	autoscroll  bool
	summary     bool
	help        bool
	showSensors bool

	header       string
	headerHeight int
	height       int

	inject     func(rules.Spec)
	ruleInput  textinput.Model
	ruleDialog bool

	actorPositions map[string]geo.Point
	actorTypes     map[string]string
	tick           int
	verdict        string

	eventCounts map[string]int
	totalEvents int
	totalAlerts int

	showMap        bool
	mapCenterLat   float64
	mapCenterLon   float64
	mapLatSpan     float64
	mapLonSpan     float64
	mapInitialized bool
	mapShowActors  bool
	mapShowSensors bool
	mapShowPOIs    bool
}

func newTUIModel(scn *scenario.Scenario, sensorColors map[string]string) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 10},
		{Title: "Value", Width: 22},
		{Title: "Config", Width: 10},
		{Title: "Value", Width: 22},
	}
	rows := []table.Row{
		{"Scenario", scn.Name, "Weather", string(scn.Weather)},
		{"Entry", fmt.Sprintf("(%.5f, %.5f)", scn.Entry.Lat, scn.Entry.Lon), "Target", fmt.Sprintf("(%.5f, %.5f)", scn.Target.Lat, scn.Target.Lon)},
		{"Sensors", fmt.Sprintf("%d", len(scn.Sensors)), "Rules", fmt.Sprintf("%d", len(scn.Rules))},
		{"POIs", fmt.Sprintf("%d", len(scn.POIs)), "", ""},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	m := tuiModel{
		scn:            scn,
		table:          t,
		vp:             viewport.New(0, 0),
		eventVP:        viewport.New(0, 0),
		alertVP:        viewport.New(0, 0),
		sensorColors:   sensorColors,
		autoscroll:     true,
		showSensors:    true,
		mapShowActors:  true,
		mapShowSensors: true,
		mapShowPOIs:    true,
		actorPositions: make(map[string]geo.Point),
		actorTypes:     make(map[string]string),
		eventCounts:    make(map[string]int),
	}
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.eventVP.Width = msg.Width
		m.alertVP.Width = msg.Width
		tableWidth := msg.Width
		if m.showSensors {
			tableWidth /= 2
		}
		m.table.SetWidth(tableWidth)
		m.recomputeHeader()
		m.refreshViewport()
		m.refreshEvents()
		m.refreshAlerts()
	case tea.KeyMsg:
		if m.ruleDialog {
			switch msg.Type {
			case tea.KeyEnter:
				spec, err := parseRuleInput(m.ruleInput.Value())
				if err == nil && m.inject != nil {
					go m.inject(spec)
				}
				m.ruleDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.ruleDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.ruleInput, cmd = m.ruleInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			if k := msg.String(); k == "?" || k == "h" || k == "esc" {
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		if m.showMap && m.handleMapKey(msg.String()) {
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.recomputeHeader()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.snapToBottom()
			}
			return m, nil
		case "r":
			m.ruleInput = textinput.New()
			m.ruleInput.Placeholder = "id,kind,params..."
			m.ruleInput.SetValue(fallbackRuleInput)
			m.ruleInput.CursorEnd()
			m.ruleInput.Focus()
			m.ruleDialog = true
			m.updateViewportHeight()
			return m, nil
		case "p":
			m.showSensors = !m.showSensors
			width := m.vp.Width
			if m.showSensors {
				width /= 2
			}
			m.table.SetWidth(width)
			m.recomputeHeader()
			return m, nil
		}
		if m.handleToggleKey(msg.String()) {
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.scrollAll(1)
			case "k", "up":
				m.scrollAll(-1)
			case "pgdown", "ctrl+n":
				m.scrollAll(10)
			case "pgup", "ctrl+p":
				m.scrollAll(-10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.eventVP, _ = m.eventVP.Update(msg)
				m.alertVP, _ = m.alertVP.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case logMsg:
		m.logs = capLines(append(m.logs, msg.line))
		m.refreshViewport()
	case actorMsg:
		m.actorPositions[msg.ActorID] = geo.Point{Lat: msg.Lat, Lon: msg.Lon}
		m.actorTypes[msg.ActorID] = msg.ActorType
		if msg.Tick > m.tick {
			m.tick = msg.Tick
		}
	case eventMsg:
		m.eventLogs = capLines(append(m.eventLogs, msg.line))
		m.totalEvents++
		m.eventCounts[msg.row.SensorID]++
		m.updateViewportHeight()
		m.refreshEvents()
		m.refreshViewport()
	case alertMsg:
		m.alertLogs = capLines(append(m.alertLogs, msg.line))
		m.totalAlerts++
		m.updateViewportHeight()
		m.refreshAlerts()
		m.refreshViewport()
	case runMsg:
		m.verdict = msg.verdict
		m.alertLogs = append(m.alertLogs, msg.line)
		m.updateViewportHeight()
		m.refreshAlerts()
	case adminMsg:
		m.admin = msg.active
	case setInjectMsg:
		m.inject = msg.fn
	}
	return m, nil
}

// handleToggleKey flips one of the view toggles, reporting whether the
// key was consumed.
func (m *tuiModel) handleToggleKey(key string) bool {
	switch key {
	case "m":
		m.showMap = !m.showMap
		if m.showMap && !m.mapInitialized {
			m.initMapViewport()
		}
	case "t":
		m.summary = !m.summary
	case "h", "?":
		m.help = !m.help
	default:
		return false
	}
	m.updateViewportHeight()
	return true
}

// handleMapKey reacts to map navigation keys, reporting whether the key
// was consumed.
func (m *tuiModel) handleMapKey(key string) bool {
	switch key {
	case "+", "=":
		m.zoomMap(0.8)
	case "-":
		m.zoomMap(1.25)
	case "left":
		m.panMap(0, -0.1)
	case "right":
		m.panMap(0, 0.1)
	case "up":
		m.panMap(0.1, 0)
	case "down":
		m.panMap(-0.1, 0)
	case "1":
		m.mapShowActors = !m.mapShowActors
	case "2":
		m.mapShowSensors = !m.mapShowSensors
	case "3":
		m.mapShowPOIs = !m.mapShowPOIs
	default:
		return false
	}
	return true
}

func (m *tuiModel) zoomMap(factor float64) {
	m.mapLatSpan = math.Max(m.mapLatSpan*factor, minMapSpan)
	m.mapLonSpan = math.Max(m.mapLonSpan*factor, minMapSpan)
}

// panMap shifts the map center by the given fractions of the visible span.
func (m *tuiModel) panMap(dLat, dLon float64) {
	m.mapCenterLat += m.mapLatSpan * dLat
	m.mapCenterLon += m.mapLonSpan * dLon
}

// scrollAll moves all three viewports by lines, negative meaning up.
func (m *tuiModel) scrollAll(lines int) {
	if lines < 0 {
		m.vp.LineUp(-lines)
		m.eventVP.LineUp(-lines)
		m.alertVP.LineUp(-lines)
		return
	}
	m.vp.LineDown(lines)
	m.eventVP.LineDown(lines)
	m.alertVP.LineDown(lines)
}

func (m *tuiModel) snapToBottom() {
	m.vp.GotoBottom()
	m.eventVP.GotoBottom()
	m.alertVP.GotoBottom()
}

// recomputeHeader re-renders the header block and resizes the viewports
// around its new height.
func (m *tuiModel) recomputeHeader() {
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
	m.updateViewportHeight()
}

func capLines(lines []string) []string {
	if len(lines) > maxLogLines {
		return lines[len(lines)-maxLogLines:]
	}
	return lines
}

func (m *tuiModel) updateViewportHeight() {
	maxLines := m.maxSectionLines()
	m.eventVP.Height = min(max(len(m.eventLogs), 1), maxLines)
	m.alertVP.Height = min(max(len(m.alertLogs), 1), maxLines)

	// header, dividers, section labels and footer frame the main viewport
	used := m.headerHeight + lipgloss.Height(m.renderBottom()) + 5
	used += m.eventVP.Height + 1
	used += m.alertVP.Height + 1
	if m.ruleDialog {
		used++
	}
	m.vp.Height = max(m.height-used, 0)
	if m.autoscroll {
		m.snapToBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := m.logs
	if m.wrap {
		lines = make([]string, len(m.logs))
		for i, l := range m.logs {
			lines[i] = wordwrap.String(l, m.vp.Width)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

// refreshSection rewrites one of the bounded log sections, showing a
// placeholder while it is empty.
func (m *tuiModel) refreshSection(vp *viewport.Model, lines []string) {
	content := "none"
	if len(lines) > 0 {
		content = strings.Join(lines, "\n")
	}
	vp.SetContent(content)
	if m.autoscroll {
		vp.GotoBottom()
	}
}

func (m *tuiModel) refreshEvents() { m.refreshSection(&m.eventVP, m.eventLogs) }
func (m *tuiModel) refreshAlerts() { m.refreshSection(&m.alertVP, m.alertLogs) }

func (m tuiModel) maxSectionLines() int {
	return max(int(float64(m.height)*maxSectionHeightPct), 1)
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.header, divider}
	if m.showMap {
		sections = append(sections, m.renderMap())
	} else {
		sections = append(sections,
			m.vp.View(),
			divider,
			"Events:",
			m.eventVP.View(),
			divider,
			"Alerts:",
			m.alertVP.View(),
		)
		if m.ruleDialog {
			sections = append(sections, divider, m.renderRuleDialog())
		}
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	if !m.showSensors {
		return tableView
	}
	sensorsWidth := m.vp.Width/2 - 1
	sensors := renderSensorTree(m.scn, m.sensorColors, m.wrap, sensorsWidth)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, sensors)
}

func renderSensorTree(scn *scenario.Scenario, colors map[string]string, wrap bool, width int) string {
	lines := []string{"Sensors"}
	for i, s := range scn.Sensors {
		prefix := "├─"
		if i == len(scn.Sensors)-1 {
			prefix = "└─"
		}
		line := fmt.Sprintf("%s %s%s%s %s range=%.0fm base_p=%.2f", prefix, colors[s.ID], s.ID, colorReset, s.Kind, s.RangeM, s.BaseProb)
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m tuiModel) renderSummary() string {
	adversaries := 0
	civilians := 0
	for _, t := range m.actorTypes {
		if t == string(actor.TypeAdversary) {
			adversaries++
		} else {
			civilians++
		}
	}
	var sensorParts []string
	for _, s := range m.scn.Sensors {
		if c := m.eventCounts[s.ID]; c > 0 {
			col := m.sensorColors[s.ID]
			sensorParts = append(sensorParts, fmt.Sprintf("%s%s%s=%d", col, s.ID, colorReset, c))
		}
	}
	summary := fmt.Sprintf("%sSUMMARY%s %sadversaries=%d%s %scivilians=%d%s %sevents=%d%s %salerts=%d%s",
		colorBlue, colorReset,
		colorRed, adversaries, colorReset,
		colorGreen, civilians, colorReset,
		colorCyan, m.totalEvents, colorReset,
		colorMagenta, m.totalAlerts, colorReset)
	if len(sensorParts) > 0 {
		summary = fmt.Sprintf("%s [%s]", summary, strings.Join(sensorParts, " "))
	}
	return summary
}

func (m tuiModel) renderBottom() string {
	dot := func(on bool) string {
		c := lipgloss.Color("9")
		if on {
			c = lipgloss.Color("10")
		}
		return lipgloss.NewStyle().Foreground(c).Render("●")
	}

	verdict := m.verdict
	verdictColor := colorGray
	switch verdict {
	case string(VerdictDetected):
		verdictColor = colorGreen
	case string(VerdictBypassed):
		verdictColor = colorRed
	default:
		verdict = "pending"
	}
	state := fmt.Sprintf("%sRUN%s %stick=%d%s %sevents=%d%s %salerts=%d%s verdict=%s%s%s",
		colorBlue, colorReset,
		colorYellow, m.tick, colorReset,
		colorCyan, m.totalEvents, colorReset,
		colorMagenta, m.totalAlerts, colorReset,
		verdictColor, verdict, colorReset)
	line := fmt.Sprintf("%s | Admin %s | Wrap %s | Scroll %s | Summary %s | Sensors %s",
		state, dot(m.admin), dot(m.wrap), dot(m.autoscroll), dot(m.summary), dot(m.showSensors))
	if m.summary {
		return fmt.Sprintf("%s\n%s", m.renderSummary(), line)
	}
	return line
}

func (m tuiModel) renderRuleDialog() string {
	return fmt.Sprintf("Inject Rule (id,kind,params...) - Enter to apply, Esc to cancel: %s", m.ruleInput.View())
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap",
		" s  toggle auto-scroll",
		" r  inject rule (id,kind,params...)",
		" t  toggle summary footer",
		" m  toggle map view",
		" +  zoom in map",
		" -  zoom out map",
		" ←→↑↓ pan map",
		" 1  toggle actor layer",
		" 2  toggle sensor layer",
		" 3  toggle POI layer",
		" p  toggle sensor tree",
		" h/? toggle this help view",
		"",
		"Rule formats:",
		" id,high_confidence_sighting,<min_confidence>",
		" id,persistent_sighting,<time_window_s>,<min_detections>",
		" id,group_sighting,<radius_m>,<time_window_s>,<min_actors>",
		"",
		"When auto-scroll is disabled:",
		" j/k, up/down     scroll by line",
		" pgup/pgdown      scroll by page",
	}
	return strings.Join(lines, "\n")
}

// initMapViewport centers the map on everything known so far, covering
// actor positions, sensor ranges, POIs and the entry/target corridor.
func (m *tuiModel) initMapViewport() {
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	grow := func(p geo.Point) {
		minLat, maxLat = math.Min(minLat, p.Lat), math.Max(maxLat, p.Lat)
		minLon, maxLon = math.Min(minLon, p.Lon), math.Max(maxLon, p.Lon)
	}
	for _, p := range m.actorPositions {
		grow(p)
	}
	for _, s := range m.scn.Sensors {
		rLat := s.RangeM * degPerMeterLat
		rLon := rLat / math.Cos(s.Pos.Lat*math.Pi/180)
		grow(geo.Point{Lat: s.Pos.Lat - rLat, Lon: s.Pos.Lon - rLon})
		grow(geo.Point{Lat: s.Pos.Lat + rLat, Lon: s.Pos.Lon + rLon})
	}
	for _, p := range m.scn.POIs {
		grow(p.Pos)
	}
	grow(m.scn.Entry)
	grow(m.scn.Target)
	if minLat > maxLat {
		minLat, maxLat, minLon, maxLon = 0, 1, 0, 1
	}
	const fallbackSpan = 0.02
	m.mapCenterLat = (minLat + maxLat) / 2
	m.mapCenterLon = (minLon + maxLon) / 2
	m.mapLatSpan, m.mapLonSpan = maxLat-minLat, maxLon-minLon
	if m.mapLatSpan == 0 {
		m.mapLatSpan = fallbackSpan
	}
	if m.mapLonSpan == 0 {
		m.mapLonSpan = fallbackSpan
	}
	m.mapInitialized = true
}

func (m tuiModel) renderMap() string {
	if len(m.actorPositions) == 0 && len(m.scn.Sensors) == 0 {
		return "No position data"
	}
	width := m.vp.Width
	mapHeight := max(m.height-m.headerHeight-lipgloss.Height(m.renderBottom())-4, 1)
	minLat, maxLat := m.mapCenterLat-m.mapLatSpan/2, m.mapCenterLat+m.mapLatSpan/2
	minLon, maxLon := m.mapCenterLon-m.mapLonSpan/2, m.mapCenterLon+m.mapLonSpan/2

	cellX := func(lon float64) int { return int((lon - minLon) / (maxLon - minLon) * float64(width-1)) }
	cellY := func(lat float64) int { return int((maxLat - lat) / (maxLat - minLat) * float64(mapHeight-1)) }

	grid := make([][]string, mapHeight)
	vlines := make(map[int]bool)
	hlines := make(map[int]bool)
	const divisions = 4
	for i := 1; i < divisions; i++ {
		vlines[int(float64(width-1)*float64(i)/divisions)] = true
		hlines[int(float64(mapHeight-1)*float64(i)/divisions)] = true
	}
	for y := range grid {
		grid[y] = make([]string, width)
		for x := range grid[y] {
			switch {
			case vlines[x] && hlines[y]:
				grid[y][x] = "+"
			case vlines[x]:
				grid[y][x] = "|"
			case hlines[y]:
				grid[y][x] = "-"
			default:
				grid[y][x] = "."
			}
		}
	}
	stamp := func(x, y int, cell string) {
		if y >= 0 && y < mapHeight && x >= 0 && x < width {
			grid[y][x] = cell
		}
	}
	if m.mapShowSensors {
		for _, s := range m.scn.Sensors {
			c := colorWhite()
			if col, ok := m.sensorColors[s.ID]; ok {
				c = col
			}
			x0, y0 := cellX(s.Pos.Lon), cellY(s.Pos.Lat)
			rLat := s.RangeM * degPerMeterLat
			rLon := rLat / math.Cos(s.Pos.Lat*math.Pi/180)
			rx := rLon / (maxLon - minLon) * float64(width-1)
			ry := rLat / (maxLat - minLat) * float64(mapHeight-1)
			for deg := 0; deg < 360; deg += 10 {
				rad := float64(deg) * math.Pi / 180
				stamp(int(float64(x0)+math.Cos(rad)*rx), int(float64(y0)+math.Sin(rad)*ry), c+"o"+colorReset)
			}
			stamp(x0, y0, c+"S"+colorReset)
		}
	}
	if m.mapShowPOIs {
		for _, p := range m.scn.POIs {
			stamp(cellX(p.Pos.Lon), cellY(p.Pos.Lat), colorYellow+"*"+colorReset)
		}
	}
	if m.mapShowActors {
		for id, p := range m.actorPositions {
			sym, col := "c", colorGreen
			if m.actorTypes[id] == string(actor.TypeAdversary) {
				sym, col = "A", colorRed
			}
			stamp(cellX(p.Lon), cellY(p.Lat), col+sym+colorReset)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "lat %.5f..%.5f lon %.5f..%.5f N↑\n", maxLat, minLat, minLon, maxLon)
	for _, row := range grid {
		b.WriteString(strings.Join(row, ""))
		b.WriteByte('\n')
	}
	// scale bar sized from the longitude extent at map center
	mPerLon := 111194.9 * math.Cos((minLat+maxLat)/2*math.Pi/180)
	barChars := int(math.Min(10, float64(width)/3))
	scaleM := (maxLon - minLon) * mPerLon / float64(width) * float64(barChars)
	fmt.Fprintf(&b, "Scale: |%s| %.0fm\n", strings.Repeat("-", barChars), scaleM)
	b.WriteString(colorRed + "A" + colorReset + "=adversary " +
		colorGreen + "c" + colorReset + "=civilian " +
		"S=sensor o=sensor_range " +
		colorYellow + "*" + colorReset + "=poi")
	return b.String()
}

// parseRuleInput parses the inject dialog's comma format into a rule spec.
func parseRuleInput(val string) (rules.Spec, error) {
	parts := strings.Split(val, ",")
	if len(parts) < 3 {
		return rules.Spec{}, fmt.Errorf("expected id,kind,params...")
	}
	id := strings.TrimSpace(parts[0])
	kind := strings.TrimSpace(parts[1])
	nums := make([]float64, 0, len(parts)-2)
	for _, p := range parts[2:] {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return rules.Spec{}, err
		}
		nums = append(nums, n)
	}
	spec := rules.Spec{ID: id, Kind: kind}
	switch kind {
	case rules.KindHighConfidenceSighting:
		spec.Params = rules.Params{MinConfidence: nums[0]}
	case rules.KindPersistentSighting:
		if len(nums) < 2 {
			return rules.Spec{}, fmt.Errorf("expected time_window_s,min_detections")
		}
		spec.Params = rules.Params{TimeWindowS: int(nums[0]), MinDetections: int(nums[1])}
	case rules.KindGroupSighting:
		if len(nums) < 3 {
			return rules.Spec{}, fmt.Errorf("expected radius_m,time_window_s,min_actors")
		}
		spec.Params = rules.Params{RadiusM: nums[0], TimeWindowS: int(nums[1]), MinActors: int(nums[2])}
	default:
		return rules.Spec{}, fmt.Errorf("unknown rule kind %q", kind)
	}
	return spec, nil
}
