// Command agent-sim impersonates a classroom projector agent. It polls the
// server for queued events and answers each one with the configured
// acknowledge or error code.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Width(14)

	onStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	logStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color("252"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

const maxLogLines = 10

type options struct {
	server      string
	classroom   string
	lampOnCode  string
	lampOffCode string
	ackCode     string
	errCode     string
	interval    time.Duration
}

type model struct {
	opts    options
	client  *apiClient
	lampOn  bool
	replyOK bool
	paused  bool
	served  int
	failed  int
	log     []string
	lastErr string
}

type tickMsg struct{}

type polledMsg struct {
	event *servedEvent
	err   error
}

type reportedMsg struct {
	event servedEvent
	rarc  string
	err   error
}

func newModel(opts options) model {
	return model{
		opts:    opts,
		client:  newAPIClient(strings.TrimRight(opts.server, "/")),
		replyOK: true,
	}
}

func (m model) Init() tea.Cmd {
	return m.pollCmd()
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.opts.interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m model) lampCode() string {
	if m.lampOn {
		return m.opts.lampOnCode
	}
	return m.opts.lampOffCode
}

func (m model) replyCode() string {
	if m.replyOK {
		return m.opts.ackCode
	}
	return m.opts.errCode
}

func (m model) pollCmd() tea.Cmd {
	client, classroom, code := m.client, m.opts.classroom, m.lampCode()
	return func() tea.Msg {
		ev, err := client.poll(classroom, code)
		return polledMsg{event: ev, err: err}
	}
}

func (m model) reportCmd(ev servedEvent) tea.Cmd {
	client, classroom, rarc := m.client, m.opts.classroom, m.replyCode()
	return func() tea.Msg {
		err := client.report(classroom, ev.EventID, rarc)
		return reportedMsg{event: ev, rarc: rarc, err: err}
	}
}

func (m *model) appendLog(line string) {
	stamp := time.Now().Format("15:04:05")
	m.log = append(m.log, stamp+" "+line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "o":
			m.lampOn = true
		case "f":
			m.lampOn = false
		case "a":
			m.replyOK = true
		case "e":
			m.replyOK = false
		case "p":
			m.paused = !m.paused
		}

	case tickMsg:
		if m.paused {
			return m, m.tick()
		}
		return m, m.pollCmd()

	case polledMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, m.tick()
		}
		m.lastErr = ""
		if msg.event == nil {
			return m, m.tick()
		}
		ev := *msg.event
		m.appendLog(fmt.Sprintf("#%d %s -> %q", ev.EventID, ev.ActionStatus, ev.CommandInstruction))
		return m, m.reportCmd(ev)

	case reportedMsg:
		if msg.err != nil {
			m.failed++
			m.lastErr = msg.err.Error()
			m.appendLog(fmt.Sprintf("#%d report %s failed", msg.event.EventID, msg.rarc))
		} else {
			m.served++
			m.appendLog(fmt.Sprintf("#%d answered %s", msg.event.EventID, msg.rarc))
		}
		// Drain the queue before waiting for the next tick.
		return m, m.pollCmd()
	}

	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Projector agent simulator"))
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("server") + m.opts.server + "\n")
	s.WriteString(labelStyle.Render("classroom") + m.opts.classroom + "\n")

	lamp := offStyle.Render("OFF (" + m.opts.lampOffCode + ")")
	if m.lampOn {
		lamp = onStyle.Render("ON (" + m.opts.lampOnCode + ")")
	}
	s.WriteString(labelStyle.Render("lamp") + lamp + "\n")

	reply := errorStyle.Render("ERR (" + m.opts.errCode + ")")
	if m.replyOK {
		reply = onStyle.Render("ACK (" + m.opts.ackCode + ")")
	}
	s.WriteString(labelStyle.Render("reply") + reply + "\n")

	state := "polling every " + m.opts.interval.String()
	if m.paused {
		state = "paused"
	}
	s.WriteString(labelStyle.Render("state") + state + "\n")
	s.WriteString(labelStyle.Render("answered") + fmt.Sprintf("%d (%d failed)", m.served, m.failed) + "\n")

	if m.lastErr != "" {
		s.WriteString("\n" + errorStyle.Render("✗ "+m.lastErr) + "\n")
	}

	if len(m.log) > 0 {
		s.WriteString("\n")
		for _, line := range m.log {
			s.WriteString(logStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("[o] lamp on  [f] lamp off  [a] ack  [e] err  [p] pause  [q] quit"))
	s.WriteString("\n")
	return s.String()
}

func main() {
	var opts options
	flag.StringVar(&opts.server, "server", "http://localhost:8080", "server base URL")
	flag.StringVar(&opts.classroom, "classroom", "", "classroom of the simulated projector")
	flag.StringVar(&opts.lampOnCode, "lamp-on-code", "%1POWR=1", "status code reported while the lamp is on")
	flag.StringVar(&opts.lampOffCode, "lamp-off-code", "%1POWR=0", "status code reported while the lamp is off")
	flag.StringVar(&opts.ackCode, "ack-code", "%1POWR=OK", "response code sent to acknowledge an event")
	flag.StringVar(&opts.errCode, "err-code", "%1POWR=ERR3", "response code sent to fail an event")
	flag.DurationVar(&opts.interval, "interval", 3*time.Second, "poll interval")
	flag.Parse()

	if opts.classroom == "" {
		fmt.Fprintln(os.Stderr, "Error: -classroom is required")
		os.Exit(2)
	}
	if opts.interval <= 0 {
		opts.interval = 3 * time.Second
	}

	p := tea.NewProgram(newModel(opts))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
