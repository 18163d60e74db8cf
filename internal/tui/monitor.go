package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/council/internal/council"
	"github.com/kingrea/council/internal/events"
	"github.com/kingrea/council/internal/runner"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	answerStyle  = lipgloss.NewStyle().PaddingLeft(2)
)

type stageStatus int

const (
	stagePending stageStatus = iota
	stageActive
	stageDone
)

type stageRow struct {
	name   string
	status stageStatus
	detail string
}

type eventMsg struct {
	event events.Event
}

type streamClosedMsg struct{}

type runDoneMsg struct {
	turn council.Turn
	err  error
}

// Monitor renders a live view of one deliberation run: a stage
// checklist fed by the run's event stream, then the synthesized answer
// once the turn commits. Quitting the monitor detaches the watcher; the
// run itself keeps going in the background.
type Monitor struct {
	run     *runner.Run
	ch      <-chan events.Event
	cancel  func()
	spinner spinner.Model

	query    string
	stages   []stageRow
	finished bool
	turn     council.Turn
	err      error
	width    int
}

// NewMonitor attaches to a run and prepares the model for tea.Run.
func NewMonitor(run *runner.Run, query string) *Monitor {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = activeStyle
	ch, cancel := run.Publisher.Subscribe()
	return &Monitor{
		run:     run,
		ch:      ch,
		cancel:  cancel,
		spinner: sp,
		query:   query,
		stages: []stageRow{
			{name: "Collecting answers"},
			{name: "Evaluating peers"},
			{name: "Synthesizing"},
		},
	}
}

// Init starts the spinner and the two event pumps.
func (m *Monitor) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent(), m.waitForRun())
}

func (m *Monitor) waitForEvent() tea.Cmd {
	ch := m.ch
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

func (m *Monitor) waitForRun() tea.Cmd {
	run := m.run
	return func() tea.Msg {
		<-run.Done()
		turn, err := run.Wait()
		return runDoneMsg{turn: turn, err: err}
	}
}

// Update drives the stage checklist from run events.
func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			if m.finished {
				return m, tea.Quit
			}
		}
		return m, nil
	case eventMsg:
		m.applyEvent(msg.event)
		return m, m.waitForEvent()
	case streamClosedMsg:
		return m, nil
	case runDoneMsg:
		m.finished = true
		m.turn = msg.turn
		m.err = msg.err
		for i := range m.stages {
			if m.stages[i].status == stageActive {
				m.stages[i].status = stageDone
			}
		}
		return m, nil
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Monitor) applyEvent(event events.Event) {
	switch event.Type {
	case events.TypeCollectingStarted:
		m.stages[0].status = stageActive
	case events.TypeCollectingDone:
		m.stages[0].status = stageDone
		m.stages[0].detail = fmt.Sprintf("%d responses", len(event.Participants))
	case events.TypeEvaluatingStarted:
		m.stages[1].status = stageActive
	case events.TypeEvaluatingDone:
		m.stages[1].status = stageDone
		m.stages[1].detail = fmt.Sprintf("%d critiques", len(event.Participants))
	case events.TypeSynthesizingStarted:
		m.stages[2].status = stageActive
		m.stages[2].detail = event.Synthesizer
	case events.TypeSynthesizingDone:
		m.stages[2].status = stageDone
	}
}

// View renders the checklist, then the answer or the failure reason.
func (m *Monitor) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("⬡ COUNCIL"))
	b.WriteString("\n\n")
	b.WriteString(detailStyle.Render("Query: " + m.query))
	b.WriteString("\n\n")
	for _, stage := range m.stages {
		b.WriteString(m.renderStage(stage))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case m.finished && m.err != nil:
		b.WriteString(errorStyle.Render("Run failed: " + m.err.Error()))
		b.WriteString("\n")
	case m.finished && m.turn.Stage3 != nil:
		b.WriteString(doneStyle.Render("Final answer"))
		if m.turn.Stage3.Participant != "" {
			b.WriteString(detailStyle.Render("  (synthesized by " + m.turn.Stage3.Participant + ")"))
		}
		b.WriteString("\n")
		b.WriteString(answerStyle.Render(m.turn.Stage3.Content))
		b.WriteString("\n")
	default:
		b.WriteString(detailStyle.Render("Deliberating; press q to detach (the run keeps going)"))
		b.WriteString("\n")
	}
	if m.finished {
		b.WriteString(detailStyle.Render("Press enter or q to exit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Monitor) renderStage(stage stageRow) string {
	var marker, name string
	switch stage.status {
	case stageDone:
		marker = doneStyle.Render("✓")
		name = doneStyle.Render(stage.name)
	case stageActive:
		marker = m.spinner.View()
		name = activeStyle.Render(stage.name)
	default:
		marker = pendingStyle.Render("·")
		name = pendingStyle.Render(stage.name)
	}
	line := fmt.Sprintf("  %s %s", marker, name)
	if stage.detail != "" {
		line += detailStyle.Render("  " + stage.detail)
	}
	return line
}
