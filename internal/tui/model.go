// Package tui is the interactive playback screen.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/jjbbllkk/acidgen/internal/audio"
	"github.com/jjbbllkk/acidgen/internal/engine"
	"github.com/jjbbllkk/acidgen/internal/pattern"
)

const fps = 30

// tickMsg drives display refresh and animation timing.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Transport is the slice of the audio player the screen drives. It is an
// interface so tests can run the screen against a bare engine.
type Transport interface {
	Play()
	Stop()
	Playing() bool
	SetParams(engine.Params)
	Params() engine.Params
	SetBPM(float64)
	BPM() float64
	Generate()
	Reset()
	ToggleMute(step int)
	Step() int
	Seed() uint32
	Outputs() engine.Outputs
	View(dst *[pattern.MaxSteps]audio.StepView)
	SnapshotState() ([]byte, error)
	RestoreState(data []byte) error
}

// Adjustable parameters, cycled with tab.
const (
	paramLength = iota
	paramDensity
	paramSpread
	paramAccent
	paramSlide
	paramScale
	paramRoot
	paramOctave
	paramBPM
	numParams
)

var paramNames = [numParams]string{
	"Length", "Density", "Spread", "Accent", "Slide", "Scale", "Root", "Octave", "BPM",
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F00AF")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AF87FF")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	restStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FFF5F"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	slideStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7FF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	playStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#5F00AF"))
	cursorStyle = lipgloss.NewStyle().Background(lipgloss.Color("#3A3A3A"))
)

// Model is the bubbletea model for the playback screen.
type Model struct {
	transport Transport
	statePath string

	cursor     int // step cursor for mute editing
	paramFocus int

	// Cached resolved view, recomputed only when the pattern or the
	// live controls change.
	view     [pattern.MaxSteps]audio.StepView
	viewSeed uint32

	// Generate flash, spring-animated toward zero.
	spring   harmonica.Spring
	flash    float64
	flashVel float64

	message string
	width   int
	height  int
}

// NewModel builds the playback screen. statePath is where save/load
// snapshots go.
func NewModel(transport Transport, statePath string) Model {
	m := Model{
		transport: transport,
		statePath: statePath,
		spring:    harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.9),
	}
	m.viewSeed = transport.Seed()
	m.refreshView()
	return m
}

func (m *Model) refreshView() {
	m.transport.View(&m.view)
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.flash, m.flashVel = m.spring.Update(m.flash, m.flashVel, 0)
		if seed := m.transport.Seed(); seed != m.viewSeed {
			m.viewSeed = seed
			m.refreshView()
		}
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.transport.Stop()
		return m, tea.Quit

	case " ":
		if m.transport.Playing() {
			m.transport.Stop()
		} else {
			m.transport.Play()
		}

	case "g":
		m.transport.Generate()
		m.flash = 1
		m.flashVel = 0
		m.viewSeed = m.transport.Seed()
		m.refreshView()
		m.message = fmt.Sprintf("generated pattern (seed %d)", m.viewSeed)

	case "r":
		m.transport.Reset()
		m.message = "reset to start"

	case "tab", "down", "j":
		m.paramFocus = (m.paramFocus + 1) % numParams
	case "shift+tab", "up", "k":
		m.paramFocus = (m.paramFocus + numParams - 1) % numParams

	case "+", "=", "right", "l":
		m.adjustParam(1)
	case "-", "_", "left", "h":
		m.adjustParam(-1)

	case "[":
		if m.cursor > 0 {
			m.cursor--
		}
	case "]":
		if m.cursor < pattern.MaxSteps-1 {
			m.cursor++
		}
	case "m":
		m.transport.ToggleMute(m.cursor)
		m.refreshView()

	case "s":
		m.saveState()
	case "o":
		m.loadState()
	}

	return m, nil
}

func (m *Model) adjustParam(dir int) {
	p := m.transport.Params()
	switch m.paramFocus {
	case paramLength:
		p.PatternLength += dir
	case paramDensity:
		p.Density += float64(dir * 5)
	case paramSpread:
		p.Spread += float64(dir * 5)
	case paramAccent:
		p.AccentDensity += float64(dir * 5)
	case paramSlide:
		p.SlideDensity += float64(dir * 5)
	case paramScale:
		s := int(p.Scale) + dir
		if s < 0 {
			s = pattern.NumScales - 1
		}
		if s >= pattern.NumScales {
			s = 0
		}
		p.Scale = pattern.Scale(s)
	case paramRoot:
		p.RootNote = ((p.RootNote+dir)%12 + 12) % 12
	case paramOctave:
		// Relative stepping, clamped to the octave range.
		p.OctaveOffset += dir
		if p.OctaveOffset < -2 {
			p.OctaveOffset = -2
		}
		if p.OctaveOffset > 2 {
			p.OctaveOffset = 2
		}
	case paramBPM:
		m.transport.SetBPM(m.transport.BPM() + float64(dir*5))
		return
	}
	clampParams(&p)
	m.transport.SetParams(p)
	m.refreshView()
}

func clampParams(p *engine.Params) {
	if p.PatternLength < 1 {
		p.PatternLength = 1
	}
	if p.PatternLength > pattern.MaxSteps {
		p.PatternLength = pattern.MaxSteps
	}
	clamp := func(v *float64) {
		if *v < 0 {
			*v = 0
		}
		if *v > 100 {
			*v = 100
		}
	}
	clamp(&p.Density)
	clamp(&p.Spread)
	clamp(&p.AccentDensity)
	clamp(&p.SlideDensity)
}

func (m *Model) saveState() {
	data, err := m.transport.SnapshotState()
	if err != nil {
		m.message = errorStyle.Render(fmt.Sprintf("save failed: %v", err))
		return
	}
	if err := os.WriteFile(m.statePath, data, 0600); err != nil {
		m.message = errorStyle.Render(fmt.Sprintf("save failed: %v", err))
		return
	}
	m.message = fmt.Sprintf("saved %s", m.statePath)
}

func (m *Model) loadState() {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		m.message = errorStyle.Render(fmt.Sprintf("load failed: %v", err))
		return
	}
	if err := m.transport.RestoreState(data); err != nil {
		m.message = errorStyle.Render(fmt.Sprintf("load failed: %v", err))
		return
	}
	m.viewSeed = m.transport.Seed()
	m.refreshView()
	m.message = fmt.Sprintf("loaded %s", m.statePath)
}

func (m Model) View() string {
	p := m.transport.Params()
	out := m.transport.Outputs()
	step := m.transport.Step()

	var b strings.Builder

	b.WriteString(titleStyle.Render("ACIDGEN") + "  ")
	if m.transport.Playing() {
		b.WriteString(noteStyle.Render("▶ playing"))
	} else {
		b.WriteString(helpStyle.Render("■ stopped"))
	}
	if m.flash > 0.05 {
		b.WriteString("  " + accentStyle.Render("● GEN"))
	}
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Seed: %d   BPM: %.0f   Clock: %s\n\n",
		m.transport.Seed(), m.transport.BPM(), gateMark(out.Gate)))

	// Parameter strip.
	values := [numParams]string{
		fmt.Sprintf("%d", p.PatternLength),
		fmt.Sprintf("%.0f%%", p.Density),
		fmt.Sprintf("%.0f%%", p.Spread),
		fmt.Sprintf("%.0f%%", p.AccentDensity),
		fmt.Sprintf("%.0f%%", p.SlideDensity),
		p.Scale.Name(),
		noteNames[p.RootNote%12],
		fmt.Sprintf("%+d", p.OctaveOffset),
		fmt.Sprintf("%.0f", m.transport.BPM()),
	}
	for i := 0; i < numParams; i++ {
		cell := fmt.Sprintf("%s:%s", paramNames[i], values[i])
		if i == m.paramFocus {
			b.WriteString(selectedStyle.Render("[" + cell + "]"))
		} else {
			b.WriteString(" " + cell + " ")
		}
		b.WriteString(" ")
	}
	b.WriteString("\n\n")

	// Step grid: four bars of sixteen.
	for row := 0; row < 4; row++ {
		b.WriteString(fmt.Sprintf("%2d ", row*pattern.BarLen+1))
		for col := 0; col < pattern.BarLen; col++ {
			i := row*pattern.BarLen + col
			b.WriteString(m.renderStep(i, step, p.PatternLength))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(m.message + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("space: play/stop • g: generate • r: reset • tab/j/k: param • h/l: adjust"))
	b.WriteString("\n" + helpStyle.Render("[/]: step cursor • m: mute step • s/o: save/load state • q: quit"))

	return b.String()
}

func (m Model) renderStep(i, playStep, length int) string {
	sv := m.view[i]

	var cell string
	var style lipgloss.Style
	switch {
	case i >= length:
		cell = " "
		style = restStyle
	case sv.Muted:
		cell = "×"
		style = mutedStyle
	case sv.IsRest():
		cell = "·"
		style = restStyle
	default:
		switch sv.Octave {
		case -1:
			cell = "▂"
		case 1:
			cell = "▆"
		default:
			cell = "▄"
		}
		style = noteStyle
		if sv.Accent {
			style = accentStyle
		}
		if sv.Slide {
			style = slideStyle
		}
	}

	if i == playStep {
		style = style.Inherit(playStyle)
	} else if i == m.cursor {
		style = style.Inherit(cursorStyle)
	}

	return style.Render(" " + cell + " ")
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func gateMark(high bool) string {
	if high {
		return noteStyle.Render("█")
	}
	return restStyle.Render("▁")
}
