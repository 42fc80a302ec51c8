package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/0xlemi/tunemaster/internal/audio"
	"github.com/0xlemi/tunemaster/internal/config"
	"github.com/0xlemi/tunemaster/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Constants for UI behavior
const (
	// Frame cadence while listening (~60 Hz)
	frameInterval = time.Second / 60

	needleWidth = 31
	strobeWidth = 40
	meterHeight = 11
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717A")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	inTuneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true)
	outTuneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3F3F46")).
			Padding(1, 2).
			Width(34)

	displayStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Width(50).
			Align(lipgloss.Center)

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// Returns a style for a natural note tile
func getNoteStyle(noteName string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[noteName])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(2, 4).
		MarginBottom(1)
}

// Get the next note in the scale (for sharp note colors)
func getNextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	case "B":
		return "C"
	default:
		return "C"
	}
}

// startMsg asks the model to start listening
type startMsg struct{}

// frameMsg is the periodic trigger while listening. Frames from an earlier
// listening run carry a stale id and are dropped.
type frameMsg struct {
	id int
	at time.Time
}

// resultMsg carries the outcome of one session poll
type resultMsg struct {
	id     int
	result session.Result
	err    error
}

// Model represents the UI state
type Model struct {
	session     *session.Session
	settings    config.Settings
	store       *config.SettingsStore
	instruments []config.Instrument
	instrument  int
	mode        Mode
	autoStart   bool

	run       int // incremented on every start and stop
	result    session.Result
	phases    [3]float64 // strobe band offsets, in revolutions
	lastFrame time.Time
	status    string
	err       error
	quitting  bool
	width     int
	height    int
	logger    *slog.Logger
}

// Options configures NewModel
type Options struct {
	Settings    config.Settings
	Store       *config.SettingsStore // nil disables saving
	Instruments []config.Instrument
	AutoStart   bool
	Logger      *slog.Logger
}

// NewModel creates a new UI model driving s. The session's reference pitch
// and instrument are set from the settings.
func NewModel(s *session.Session, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	instruments := opts.Instruments
	if len(instruments) == 0 {
		instruments = config.Builtins()
	}

	m := Model{
		session:     s,
		settings:    opts.Settings,
		store:       opts.Store,
		instruments: instruments,
		autoStart:   opts.AutoStart,
		logger:      logger,
	}

	if mode, err := ParseMode(opts.Settings.Mode); err == nil {
		m.mode = mode
	}
	for i, inst := range instruments {
		if inst.ID == s.Instrument().ID {
			m.instrument = i
		}
	}
	return m
}

// Init starts listening when requested
func (m Model) Init() tea.Cmd {
	if !m.autoStart {
		return nil
	}
	return func() tea.Msg { return startMsg{} }
}

func scheduleFrame(id int) tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg{id: id, at: t}
	})
}

func (m Model) pollCmd() tea.Cmd {
	s, id := m.session, m.run
	return func() tea.Msg {
		res, err := s.Poll()
		return resultMsg{id: id, result: res, err: err}
	}
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case startMsg:
		return m.start()

	case frameMsg:
		if msg.id != m.run || m.session.State() != session.Listening {
			return m, nil
		}
		return m, m.pollCmd()

	case resultMsg:
		if msg.id != m.run {
			return m, nil
		}
		if errors.Is(msg.err, session.ErrNotListening) {
			m.result = session.Result{}
			return m, nil
		}
		if errors.Is(msg.err, audio.ErrEndOfStream) {
			m.stop()
			m.status = "input ended"
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.logger.Warn("poll failed", "err", msg.err)
		} else {
			m.err = nil
		}
		m.result = msg.result
		m.advanceStrobe(time.Now())
		return m, scheduleFrame(m.run)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.stop()
		m.quitting = true
		return m, tea.Quit

	case " ", "space":
		if m.session.State() == session.Listening {
			m.stop()
			return m, nil
		}
		return m.start()

	case "m":
		m.mode = m.mode.Next()
		m.settings.Mode = m.mode.String()
		m.save()

	case "+", "=":
		m.setReference(m.session.ReferencePitch() + 1)

	case "-", "_":
		m.setReference(m.session.ReferencePitch() - 1)

	case "]":
		m.selectInstrument(m.instrument + 1)

	case "[":
		m.selectInstrument(m.instrument - 1)

	case "k":
		m.settings.KeepAwake = !m.settings.KeepAwake
		m.save()
	}
	return m, nil
}

func (m Model) start() (tea.Model, tea.Cmd) {
	if err := m.session.Start(); err != nil {
		m.err = err
		return m, nil
	}
	m.run++
	m.err = nil
	m.status = ""
	m.lastFrame = time.Now()
	return m, scheduleFrame(m.run)
}

func (m *Model) stop() {
	m.run++
	if err := m.session.Stop(); err != nil {
		m.logger.Warn("stop failed", "err", err)
	}
	m.result = session.Result{}
	m.phases = [3]float64{}
}

func (m *Model) setReference(hz float64) {
	if err := m.session.SetReferencePitch(hz); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.settings.ReferencePitch = hz
	m.save()
}

func (m *Model) selectInstrument(i int) {
	n := len(m.instruments)
	i = ((i % n) + n) % n
	if err := m.session.SetInstrument(m.instruments[i]); err != nil {
		m.err = err
		return
	}
	m.instrument = i
	m.result = m.session.Snapshot()
	m.settings.Instrument = m.instruments[i].ID
	m.save()
}

func (m *Model) save() {
	if m.store == nil {
		return
	}
	if err := m.store.Save(m.settings); err != nil {
		m.err = fmt.Errorf("save settings: %w", err)
	}
}

// advanceStrobe moves each band by its speed over the elapsed frame time
func (m *Model) advanceStrobe(now time.Time) {
	dt := frameInterval.Seconds()
	if !m.lastFrame.IsZero() {
		dt = math.Min(now.Sub(m.lastFrame).Seconds(), 0.25)
	}
	m.lastFrame = now

	for i, band := range Strobe(m.result) {
		dir := -1.0
		if band.Sharp {
			dir = 1.0
		}
		m.phases[i] += dir * band.Speed * dt
		m.phases[i] -= math.Floor(m.phases[i])
	}
}

// Mode returns the active display mode
func (m Model) Mode() Mode {
	return m.mode
}

// Settings returns the settings as last changed through the UI
func (m Model) Settings() config.Settings {
	return m.settings
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := titleStyle.Render("TuneMaster - Instrument Tuner")
	s += "\n"

	display := lipgloss.JoinVertical(lipgloss.Center, m.viewNote(), m.viewMode())
	s += lipgloss.JoinHorizontal(lipgloss.Top, displayStyle.Render(display), panelStyle.Render(m.viewControls()))

	s += "\n"
	if m.err != nil {
		s += errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	s += infoStyle.Render("space start/stop  m mode  +/- reference  [ ] instrument  k keep awake  q quit")
	return s
}

func (m Model) viewNote() string {
	if m.result.Idle() {
		if m.session.State() == session.Listening {
			return infoStyle.Render("Listening for audio...")
		}
		return infoStyle.Render("Press space to start listening")
	}

	note := m.result.Note
	noteText := fmt.Sprintf("%s%d", note.Name, note.Octave)
	var tile string

	// For sharps, render the note with split colors
	if strings.HasSuffix(note.Name, "#") {
		baseNote := string(note.Name[0])
		nextNote := getNextNote(baseNote)

		leftStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color(noteColors[baseNote])).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333333")).
			BorderRight(false).
			PaddingLeft(2).
			PaddingRight(1).
			PaddingTop(2).
			PaddingBottom(2)

		rightStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color(noteColors[nextNote])).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333333")).
			BorderLeft(false).
			PaddingLeft(1).
			PaddingRight(2).
			PaddingTop(2).
			PaddingBottom(2)

		tile = lipgloss.JoinHorizontal(lipgloss.Top,
			leftStyle.Render(baseNote),
			rightStyle.Render("#"+noteText[2:]))
	} else {
		tile = getNoteStyle(note.Name).Render(noteText)
	}

	centsStyle := outTuneStyle
	if math.Abs(note.Cents) < needleInTuneCents {
		centsStyle = inTuneStyle
	}
	info := infoStyle.Render(fmt.Sprintf("%.2f Hz", note.Frequency))
	return lipgloss.JoinVertical(lipgloss.Center, tile, centsStyle.Render(centsLabel(note.Cents)), info)
}

func (m Model) viewMode() string {
	switch m.mode {
	case ModeStrobe:
		return m.viewStrobe()
	case ModePolyphonic:
		return m.viewPolyphonic()
	default:
		return m.viewNeedle()
	}
}

func (m Model) viewNeedle() string {
	needle := ChromaticNeedle(m.result)
	pos := int(math.Round((needle.Angle + needleMaxAngle) / (2 * needleMaxAngle) * float64(needleWidth-1)))

	var b strings.Builder
	for i := 0; i < needleWidth; i++ {
		switch {
		case i == pos && !m.result.Idle():
			b.WriteString("┃")
		case i == needleWidth/2:
			b.WriteString("┊")
		case i == 0 || i == needleWidth-1:
			b.WriteString("│")
		default:
			b.WriteString("─")
		}
	}

	style := outTuneStyle
	if needle.InTune {
		style = inTuneStyle
	}
	scale := labelStyle.Render(fmt.Sprintf("%-*s%s%*s", needleWidth/2-2, "-45", "0", needleWidth/2-1, "+45"))
	return lipgloss.JoinVertical(lipgloss.Center, "", style.Render(b.String()), scale)
}

const strobePattern = "██░░"

func (m Model) viewStrobe() string {
	rows := make([]string, 0, 3)
	for i := range Strobe(m.result) {
		offset := int(m.phases[i] * float64(len([]rune(strobePattern))*4))
		rows = append(rows, strobeRow(offset, strobeWidth))
	}
	return lipgloss.JoinVertical(lipgloss.Center, append([]string{""}, rows...)...)
}

// strobeRow renders width cells of the repeating pattern shifted by offset,
// with the reference mark in the middle
func strobeRow(offset, width int) string {
	pattern := []rune(strobePattern)
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i == width/2 {
			b.WriteString(errorStyle.Render("│"))
			continue
		}
		idx := ((i-offset)%len(pattern) + len(pattern)) % len(pattern)
		b.WriteRune(pattern[idx])
	}
	return b.String()
}

func (m Model) viewPolyphonic() string {
	meters := Polyphonic(m.result, m.instruments[m.instrument])
	columns := make([]string, 0, len(meters))
	for _, meter := range meters {
		columns = append(columns, renderMeter(meter)+" ")
	}
	return lipgloss.JoinVertical(lipgloss.Center, "", lipgloss.JoinHorizontal(lipgloss.Bottom, columns...))
}

// renderMeter draws one string as a vertical gauge; the marker rises with
// sharpness and sits on the centre line when tuned
func renderMeter(meter StringMeter) string {
	mid := meterHeight / 2
	row := mid
	if meter.Active {
		shift := int(math.Round(meter.Cents / 50 * float64(mid)))
		row = mid - max(-mid, min(mid, shift))
	}

	cells := make([]string, meterHeight)
	for i := range cells {
		switch {
		case meter.Active && i == row && meter.Tuned:
			cells[i] = inTuneStyle.Render("███")
		case meter.Active && i == row:
			cells[i] = outTuneStyle.Render("▬▬▬")
		case i == mid:
			cells[i] = labelStyle.Render("───")
		default:
			cells[i] = labelStyle.Render(" │ ")
		}
	}
	label := labelStyle.Render(fmt.Sprintf("%-3s", meter.Label))
	return lipgloss.JoinVertical(lipgloss.Center, append(cells, label)...)
}

func (m Model) viewControls() string {
	inst := m.instruments[m.instrument]

	var b strings.Builder
	b.WriteString(labelStyle.Render("TUNER MODE") + "\n")
	for i, name := range modeNames {
		marker := "  "
		if Mode(i) == m.mode {
			marker = "▸ "
		}
		b.WriteString(marker + name + "\n")
	}

	b.WriteString("\n" + labelStyle.Render("REFERENCE PITCH (Hz)") + "\n")
	b.WriteString(fmt.Sprintf("  -  %g  +\n", m.session.ReferencePitch()))

	b.WriteString("\n" + labelStyle.Render("INSTRUMENT") + "\n")
	b.WriteString("  " + inst.Name + "\n")
	b.WriteString("  " + strings.Join(inst.StringNames(), " ") + "\n")

	keepAwake := "off"
	if m.settings.KeepAwake {
		keepAwake = "on"
	}
	b.WriteString("\n" + labelStyle.Render("KEEP SCREEN ON") + "  " + keepAwake + "\n")

	status := labelStyle.Render("● IDLE")
	if m.session.State() == session.Listening {
		status = inTuneStyle.Render("● MIC INPUT ACTIVE")
	}
	if m.status != "" {
		status += "  " + infoStyle.Render(m.status)
	}
	b.WriteString("\n" + status)
	return b.String()
}
