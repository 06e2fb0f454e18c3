package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reesdraminski/soundboard/board"
	"github.com/reesdraminski/soundboard/catalog"
	"github.com/reesdraminski/soundboard/clipboard"
	"github.com/reesdraminski/soundboard/hotkey"
	"github.com/reesdraminski/soundboard/log"
	"github.com/reesdraminski/soundboard/recorder"
	"github.com/reesdraminski/soundboard/shutdown"
)

// TUI message types
type recordDoneMsg struct{ res recorder.Result }
type playDoneMsg struct {
	index int
	err   error
}
type copiedMsg struct {
	index int
	err   error
}
type catalogChangedMsg struct{}
type hotkeyMsg struct{ action hotkey.Action }
type tickMsg time.Time

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
	tuiStateStopping
	tuiStateNaming
)

const maxButtonName = 24

type keyMap struct {
	Record key.Binding
	Play   key.Binding
	Left   key.Binding
	Right  key.Binding
	Copy   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Play, k.Left, k.Right, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Record: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record/stop")),
	Play:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter/1-9", "play")),
	Left:   key.NewBinding(key.WithKeys("left", "up", "k", "h"), key.WithHelp("←/k", "prev")),
	Right:  key.NewBinding(key.WithKeys("right", "down", "j", "l"), key.WithHelp("→/j", "next")),
	Copy:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy data")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	standbyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	buttonStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	selectedStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("214")).Bold(true)
	playingStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("42")).Bold(true)
)

type tuiModel struct {
	board *board.Board
	ctx   context.Context

	entries  []catalog.Entry
	selected int
	playing  int

	state             tuiState
	frame             int
	recordStart       time.Time
	recordingDuration float64
	audioLevel        float64
	peakLevel         float64 // peak audio level during current recording
	pending           []byte  // finished recording waiting for a name

	name       textinput.Model
	help       help.Model
	status     string
	statusWarn bool
	deviceLine string
	hotkeyLine string
	copy       func(string) error

	width, height int
}

func newTUIModel(ctx context.Context, b *board.Board) tuiModel {
	ti := textinput.New()
	ti.Placeholder = "unnamed"
	ti.Prompt = "Name this sound: "
	ti.CharLimit = 64

	return tuiModel{
		board:      b,
		ctx:        ctx,
		entries:    b.Entries(),
		playing:    -1,
		name:       ti,
		help:       help.New(),
		deviceLine: deviceLineText(b.DeviceName()),
		copy:       clipboard.Copy,
	}
}

func runTUI() error {
	s := openSession(cfg, sessionOptions{capture: true, playback: true, watch: true, pickDevice: setupFlag})
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := newTUIModel(ctx, s.board)
	var trigger *hotkey.Trigger
	if cfg.Hotkey {
		hk := hotkey.New()
		if err := hk.Register(); err != nil {
			log.Warnf("hotkey register error: %v", err)
			model.setStatus(fmt.Sprintf("%s unavailable: %v", hotkey.Combo, err), true)
		} else {
			defer hk.Unregister()
			trigger = hotkey.NewTrigger(hk, cfg.HotkeyHold)
			defer trigger.Close()
			model.hotkeyLine = hotkey.Combo + " records from any window"
		}
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if trigger != nil {
		go forwardHotkey(ctx, trigger, p.Send)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.changes():
				p.Send(catalogChangedMsg{})
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		select {
		case <-sigChan:
			p.Quit()
		case <-ctx.Done():
		}
	}()

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		return err
	}
	return nil
}

func forwardHotkey(ctx context.Context, tr *hotkey.Trigger, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-tr.Actions():
			log.Info("hotkey_" + a.String())
			send(hotkeyMsg{action: a})
		}
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if m.state == tuiStateNaming {
			return m.updateNaming(msg)
		}
		return m.updateKeys(msg)

	case tickMsg:
		m.frame++
		if m.state == tuiStateRecording {
			m.recordingDuration = time.Since(m.recordStart).Seconds()
			level := m.board.Level()
			m.audioLevel = m.audioLevel*0.6 + level*0.4
			if level > m.peakLevel {
				m.peakLevel = level
			}
		}
		return m, tuiTick()

	case recordDoneMsg:
		return m.finishRecording(msg.res)

	case playDoneMsg:
		if m.playing == msg.index {
			m.playing = -1
		}
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.setStatus(fmt.Sprintf("cannot play #%d: %v", msg.index+1, msg.err), true)
		}

	case copiedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("copy failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("copied #%d to clipboard", msg.index+1), false)
		}

	case hotkeyMsg:
		// Start only from standby and stop only a running take, so a press
		// while naming or saving is dropped.
		if (msg.action == hotkey.Start && m.state == tuiStateIdle) ||
			(msg.action == hotkey.Stop && m.state == tuiStateRecording) {
			return m.toggleRecording()
		}

	case catalogChangedMsg:
		n := m.board.Reload()
		m.entries = m.board.Entries()
		if m.selected >= n {
			m.selected = max(n-1, 0)
		}
		m.setStatus(fmt.Sprintf("reloaded %d sounds", n), false)
	}
	return m, nil
}

func (m tuiModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Record):
		return m.toggleRecording()
	case key.Matches(msg, keys.Play):
		return m.play(m.selected)
	case key.Matches(msg, keys.Left):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, keys.Right):
		if m.selected < len(m.entries)-1 {
			m.selected++
		}
	case key.Matches(msg, keys.Copy):
		return m.copySelected()
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			i := int(s[0] - '1')
			if i < len(m.entries) {
				m.selected = i
			}
			return m.play(i)
		}
	}
	return m, nil
}

func (m tuiModel) updateNaming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		return m.save(strings.TrimSpace(m.name.Value())), nil
	case tea.KeyEsc:
		// The recording is kept; only the name is skipped.
		return m.save(""), nil
	}
	var cmd tea.Cmd
	m.name, cmd = m.name.Update(msg)
	return m, cmd
}

func (m tuiModel) toggleRecording() (tea.Model, tea.Cmd) {
	switch m.state {
	case tuiStateRecording:
		m.state = tuiStateStopping
		m.audioLevel = 0
		done := m.board.StopRecording()
		return m, func() tea.Msg { return recordDoneMsg{res: <-done} }
	case tuiStateIdle:
		if err := m.board.StartRecording(); err != nil {
			m.setStatus("microphone unavailable", true)
			return m, nil
		}
		m.state = tuiStateRecording
		m.recordStart = time.Now()
		m.recordingDuration = 0
		m.audioLevel = 0
		m.peakLevel = 0
		m.status = ""
	}
	return m, nil
}

func (m tuiModel) finishRecording(res recorder.Result) (tea.Model, tea.Cmd) {
	m.state = tuiStateIdle
	switch {
	case errors.Is(res.Err, recorder.ErrNoAudio):
		m.setStatus("nothing recorded", true)
		return m, nil
	case res.Err != nil:
		m.setStatus(fmt.Sprintf("recording failed: %v", res.Err), true)
		return m, nil
	}
	m.pending = res.Payload
	m.state = tuiStateNaming
	m.name.Reset()
	cmd := m.name.Focus()
	return m, cmd
}

func (m tuiModel) save(name string) tuiModel {
	idx := m.board.Save(name, m.pending)
	m.pending = nil
	m.name.Blur()
	m.state = tuiStateIdle
	m.entries = m.board.Entries()
	m.selected = idx
	if m.board.Durable() {
		m.setStatus(fmt.Sprintf("saved #%d %s", idx+1, displayName(name)), false)
	} else {
		m.setStatus(fmt.Sprintf("saved #%d %s for this session only", idx+1, displayName(name)), true)
	}
	return m
}

func (m tuiModel) play(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.entries) {
		return m, nil
	}
	m.playing = i
	b, ctx := m.board, m.ctx
	return m, func() tea.Msg {
		return playDoneMsg{index: i, err: b.Play(ctx, i)}
	}
}

func (m tuiModel) copySelected() (tea.Model, tea.Cmd) {
	if m.selected >= len(m.entries) {
		return m, nil
	}
	i, data, copyFn := m.selected, m.entries[m.selected].Data, m.copy
	return m, func() tea.Msg {
		return copiedMsg{index: i, err: copyFn(data)}
	}
}

func (m *tuiModel) setStatus(text string, warn bool) {
	m.status = text
	m.statusWarn = warn
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	lines = append(lines, titleStyle.Render("soundboard")+"  "+m.durabilityBadge())

	switch m.state {
	case tuiStateRecording:
		status := recStyle.Render(fmt.Sprintf("● REC %.1fs", m.recordingDuration)) + " " + renderLevel(m.audioLevel, 20)
		lines = append(lines, status)
		if m.recordingDuration > 1.0 && m.peakLevel < 0.02 {
			lines = append(lines, warnStyle.Render("  ⚠ no sound detected"))
		}
	case tuiStateStopping:
		lines = append(lines, recStyle.Render("● saving..."))
	default:
		lines = append(lines, standbyStyle.Render("○ STANDBY"))
	}
	lines = append(lines, dimStyle.Render(m.deviceLine))
	if m.hotkeyLine != "" {
		lines = append(lines, dimStyle.Render(m.hotkeyLine))
	}
	lines = append(lines, "")

	lines = append(lines, renderSounds(m.entries, m.selected, m.playing, m.width))
	lines = append(lines, "")

	if m.state == tuiStateNaming {
		lines = append(lines, m.name.View())
		lines = append(lines, dimStyle.Render("enter to save, esc to save without a name"))
	}
	if m.status != "" {
		if m.statusWarn {
			lines = append(lines, warnStyle.Render(m.status))
		} else {
			lines = append(lines, okStyle.Render(m.status))
		}
	}
	lines = append(lines, "", m.help.View(keys), dimStyle.Render("soundboard "+version))

	return strings.Join(lines, "\n")
}

func (m tuiModel) durabilityBadge() string {
	if m.board.Durable() {
		return dimStyle.Render("[saved to disk]")
	}
	return warnStyle.Render("[session only]")
}

// renderSounds lays the catalog out as rows of numbered buttons wrapped to
// width, in catalog order.
func renderSounds(entries []catalog.Entry, selected, playing, width int) string {
	if len(entries) == 0 {
		return dimStyle.Render("No sounds yet. Press r to record one.")
	}
	if width <= 0 {
		width = 80
	}

	var rows []string
	var row []string
	rowWidth := 0
	for i, e := range entries {
		style := buttonStyle
		switch i {
		case playing:
			style = playingStyle
		case selected:
			style = selectedStyle
		}
		button := style.Render(fmt.Sprintf("%d %s", i+1, truncate(displayName(e.Name), maxButtonName)))
		w := lipgloss.Width(button) + 1
		if rowWidth > 0 && rowWidth+w > width {
			rows = append(rows, strings.Join(row, " "))
			row, rowWidth = nil, 0
		}
		row = append(row, button)
		rowWidth += w
	}
	rows = append(rows, strings.Join(row, " "))
	return strings.Join(rows, "\n")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func renderLevel(level float64, width int) string {
	filled := int(level * 10 * float64(width))
	filled = min(max(filled, 0), width)
	return okStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}
