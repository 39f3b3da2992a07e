package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/d1nch8g/pushtalk/engine"
)

const maxLines = 50

type (
	eventMsg  event
	logMsg    string
	talkedMsg struct{ err error }
)

type model struct {
	ctx     context.Context
	console *Console

	history  viewport.Model
	lines    []string
	logLines []string
	state    engine.State
	talking  bool
	lastErr  error

	styles   Styles
	width    int
	height   int
	quitting bool
}

func newModel(ctx context.Context, c *Console) model {
	return model{
		ctx:     ctx,
		console: c,
		history: viewport.New(80, 10),
		styles:  NewStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.listenEvents(), m.listenLogs())
}

func (m model) listenEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.console.events:
			return eventMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) listenLogs() tea.Cmd {
	if m.console.logs == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case line := <-m.console.logs.Lines():
			return logMsg(line)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeySpace:
			return m.toggleTalk()
		case tea.KeyRunes:
			if len(msg.Runes) != 1 {
				break
			}
			switch msg.Runes[0] {
			case 'q':
				m.quitting = true
				return m, tea.Quit
			case 'r':
				if m.console.reset != nil {
					m.console.reset()
				}
				m.lines = nil
				m.addLine(m.styles.Help.Render("conversation reset"))
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.Width = msg.Width
		m.history.Height = max(msg.Height-maxLogRows-4, 3)
		m.history.SetContent(strings.Join(m.lines, "\n"))

	case eventMsg:
		m.handleEvent(event(msg))
		cmds = append(cmds, m.listenEvents())

	case logMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > maxLines {
			m.logLines = m.logLines[len(m.logLines)-maxLines:]
		}
		cmds = append(cmds, m.listenLogs())

	case talkedMsg:
		m.lastErr = msg.err
		if msg.err != nil {
			m.talking = false
		}
	}

	return m, tea.Batch(cmds...)
}

// toggleTalk maps repeated space presses onto trigger down and up, since
// terminals do not report key release.
func (m model) toggleTalk() (tea.Model, tea.Cmd) {
	trigger, ctx := m.console.trigger, m.ctx
	if !m.talking {
		m.talking = true
		return m, func() tea.Msg {
			return talkedMsg{err: trigger.TriggerDown(ctx)}
		}
	}
	m.talking = false
	return m, func() tea.Msg {
		trigger.TriggerUp(ctx)
		return talkedMsg{}
	}
}

func (m *model) handleEvent(ev event) {
	switch ev.kind {
	case requestEvent:
		m.addLine(m.styles.Request.Render("you: " + ev.text))
	case responseEvent:
		m.addLine(m.styles.Reply.Render("assistant: " + ev.text))
	case stateEvent:
		m.state = ev.state
		if ev.state != engine.Streaming {
			m.talking = false
		}
	}
}

func (m *model) addLine(s string) {
	ts := time.Now().Format("15:04:05")
	m.lines = append(m.lines, fmt.Sprintf("[%s] %s", ts, s))
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	m.history.SetContent(strings.Join(m.lines, "\n"))
	m.history.GotoBottom()
}

const maxLogRows = 6

func (m model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	status := m.state.String()
	if m.lastErr != nil {
		status += " (" + m.lastErr.Error() + ")"
	}

	logs := m.logLines
	if len(logs) > maxLogRows {
		logs = logs[len(logs)-maxLogRows:]
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("PUSHTALK") + " " + m.styles.Help.Render("["+status+"]") + "\n")
	b.WriteString(m.history.View() + "\n")
	b.WriteString(m.styles.Label.Render("log") + "\n")
	for _, line := range logs {
		b.WriteString(m.styles.Help.Render(line) + "\n")
	}
	b.WriteString(m.styles.Help.Render("space=talk/stop  r=reset  q/Ctrl+C=quit"))
	return b.String()
}
