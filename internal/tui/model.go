package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"impulse-sim/internal/chart"
	"impulse-sim/internal/report"
	"impulse-sim/internal/session"
	"impulse-sim/internal/waveform"
)

const (
	fallbackWidth  = 80
	fallbackHeight = 24
	chartHeight    = 10
	minExplainRows = 3
	maxExplainRows = 12
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	stdStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	nonStdStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	plainStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	bannerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")).Padding(0, 1)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type model struct {
	ctx      context.Context
	ctrl     *session.Controller
	defaults waveform.Parameters
	controls []report.Control
	table    table.Model
	input    textinput.Model
	editing  bool
	inputErr string
	notice   string
	vp       viewport.Model
	state    session.State
	width    int
	height   int
}

func newModel(ctx context.Context, ctrl *session.Controller, defaults waveform.Parameters) model {
	width, height := fallbackWidth, fallbackHeight
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && h > 0 {
		width, height = w, h
	}
	controls := report.Controls()
	cols := []table.Column{
		{Title: "Parameter", Width: 30},
		{Title: "Value", Width: 12},
		{Title: "Range", Width: 16},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(len(controls)+1),
	)
	ti := textinput.New()
	ti.CharLimit = 16
	m := model{
		ctx:      ctx,
		ctrl:     ctrl,
		defaults: defaults,
		controls: controls,
		table:    t,
		input:    ti,
		vp:       viewport.New(width, minExplainRows),
		state:    ctrl.Snapshot(),
		width:    width,
		height:   height,
	}
	m.refreshRows()
	m.resize()
	return m
}

func (m model) Init() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg { return stateMsg{State: ctrl.Flush()} }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
	case stateMsg:
		m.state = msg.State
		m.refreshRows()
	case explainDoneMsg:
		m.state = m.ctrl.Snapshot()
		m.notice = ""
		if msg.err != nil && m.state.ExplainErr == nil && !errors.Is(msg.err, session.ErrStale) {
			m.notice = msg.err.Error()
		}
		m.refreshRows()
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			m.nudge(-1)
			return m, nil
		case "right", "l":
			m.nudge(1)
			return m, nil
		case "enter":
			c := m.selected()
			m.editing = true
			m.inputErr = ""
			m.input.Prompt = c.Label + ": "
			m.input.SetValue(strconv.FormatFloat(c.Get(m.state.Params), 'f', -1, 64))
			m.input.CursorEnd()
			return m, m.input.Focus()
		case "r":
			m.apply(m.defaults)
			return m, nil
		case "x":
			return m.explain()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		v, err := strconv.ParseFloat(strings.TrimSpace(m.input.Value()), 64)
		if err != nil {
			m.inputErr = fmt.Sprintf("not a number: %q", m.input.Value())
			return m, nil
		}
		p := m.state.Params
		m.selected().Set(&p, v)
		m.editing = false
		m.input.Blur()
		m.apply(p)
		return m, nil
	case tea.KeyEsc:
		m.editing = false
		m.inputErr = ""
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) selected() report.Control {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.controls) {
		i = 0
	}
	return m.controls[i]
}

func (m *model) nudge(steps int) {
	p := m.state.Params
	m.selected().Nudge(&p, steps)
	m.apply(p)
}

func (m *model) apply(p waveform.Parameters) {
	m.notice = ""
	m.ctrl.SetParams(p)
	m.state = m.ctrl.Snapshot()
	m.refreshRows()
}

func (m model) canExplain() bool {
	return m.state.Output != nil && m.state.Err == nil && !m.state.Explaining && !m.state.Pending
}

func (m model) explain() (tea.Model, tea.Cmd) {
	if !m.canExplain() {
		return m, nil
	}
	m.state.Explaining = true
	m.state.Explanation = ""
	m.state.ExplainErr = nil
	m.notice = ""
	m.refreshExplanation()
	ctx, ctrl := m.ctx, m.ctrl
	return m, func() tea.Msg {
		text, err := ctrl.Explain(ctx)
		return explainDoneMsg{text: text, err: err}
	}
}

func (m *model) refreshRows() {
	rows := make([]table.Row, 0, len(m.controls))
	for _, c := range m.controls {
		rng := fmt.Sprintf("%g–%g", c.Min, c.Max)
		rows = append(rows, table.Row{c.Label, c.Format(m.state.Params), rng})
	}
	m.table.SetRows(rows)
	m.refreshExplanation()
}

func (m *model) refreshExplanation() {
	var text string
	switch {
	case m.state.Explaining:
		text = "Analyzing..."
	case m.state.ExplainErr != nil:
		text = "AI explanation failed: " + m.state.ExplainErr.Error()
	case m.notice != "":
		text = m.notice
	case m.state.Explanation != "":
		text = m.state.Explanation
	default:
		text = mutedStyle.Render("Press x to explain the current waveform.")
	}
	m.vp.SetContent(wordwrap.String(text, m.vp.Width))
	m.vp.GotoTop()
}

func (m *model) resize() {
	m.vp.Width = m.width
	used := lipgloss.Height(m.table.View()) + chartHeight + 12
	h := m.height - used
	if h < minExplainRows {
		h = minExplainRows
	}
	if h > maxExplainRows {
		h = maxExplainRows
	}
	m.vp.Height = h
	m.refreshExplanation()
}

func (m model) View() string {
	divider := mutedStyle.Render(strings.Repeat("─", m.width))
	header := titleStyle.Render("Impulse Generator Simulator")
	if m.state.Pending {
		header += " " + pendingStyle.Render("computing...")
	}
	sections := []string{
		header,
		m.table.View(),
		fmt.Sprintf("Total charging voltage: %g kV", m.state.Params.TotalChargingVoltage()),
	}
	if m.editing {
		line := m.input.View()
		if m.inputErr != "" {
			line += "  " + nonStdStyle.Render(m.inputErr)
		}
		sections = append(sections, line)
	}
	sections = append(sections, divider)
	if m.state.Err != nil {
		sections = append(sections, renderBanner(m.state.Err))
	}
	if out := m.state.Output; out != nil {
		sections = append(sections,
			renderCards(m.state.OutputParams, out.Result),
			chart.ASCII(out.Waveform, m.width, chartHeight),
		)
	}
	sections = append(sections, divider, "Explanation:", m.vp.View(), divider, m.renderHelp())
	return strings.Join(sections, "\n")
}

func renderBanner(err error) string {
	label := "Error"
	if kind, ok := waveform.KindOf(err); ok {
		label = kind.String()
	}
	return bannerStyle.Render(fmt.Sprintf("%s: %v", label, err))
}

func renderCards(p waveform.Parameters, r waveform.Result) string {
	var cards []string
	for _, c := range report.Cards(r) {
		style := plainStyle
		if c.Standard != nil {
			style = nonStdStyle
			if *c.Standard {
				style = stdStyle
			}
		}
		body := c.Title + "\n" + style.Render(c.Value+" "+c.Unit)
		if label := c.TargetLabel(); label != "" {
			body += "\n" + mutedStyle.Render(label)
		}
		cards = append(cards, cardStyle.Render(body))
	}
	eff := fmt.Sprintf("Efficiency\n%s", plainStyle.Render(fmt.Sprintf("%.2f %%", report.Efficiency(p, r)*100)))
	cards = append(cards, cardStyle.Render(eff))
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m model) renderHelp() string {
	explain := "x explain"
	if m.state.Explaining {
		explain = mutedStyle.Render("x explain (busy)")
	}
	return mutedStyle.Render("↑/↓ select  ←/→ adjust  enter edit  r reset  ") + explain + mutedStyle.Render("  pgup/pgdn scroll  q quit")
}
