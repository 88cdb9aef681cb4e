package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nats-io/nats.go"

	"github.com/maago/notify-bridge/relay"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	leafStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	subjectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	unknownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxRows = 500

type eventRow struct {
	received time.Time
	subject  string
	summary  string
	leaf     string
	body     []byte
	unknown  bool
}

type tailModel struct {
	err       error
	nc        *nats.Conn
	sub       *nats.Subscription
	url       string
	subject   string
	rows      []eventRow
	filter    textinput.Model
	selected  int
	paused    bool
	detail    bool
	filtering bool
	dropped   int
}

type connectedMsg struct {
	err error
	nc  *nats.Conn
	sub *nats.Subscription
}

type eventMsg eventRow

func newTailModel(url, subject string) *tailModel {
	ti := textinput.New()
	ti.Placeholder = "leaf or summary substring"
	ti.Prompt = "filter: "
	ti.Width = 40
	return &tailModel{url: url, subject: subject, filter: ti}
}

func (m *tailModel) Init() tea.Cmd {
	return nil
}

func (m *tailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter":
				m.filtering = false
				m.filter.Blur()
				m.selected = 0
			case "esc":
				m.filtering = false
				m.filter.Blur()
				m.filter.SetValue("")
				m.selected = 0
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			if m.sub != nil {
				m.sub.Unsubscribe()
			}
			if m.nc != nil {
				m.nc.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.visible())-1 {
				m.selected++
			}

		case "enter":
			if len(m.visible()) > 0 {
				m.detail = !m.detail
			}

		case "p", " ":
			m.paused = !m.paused

		case "/":
			m.filtering = true
			m.filter.Focus()
			return m, textinput.Blink

		case "esc":
			m.detail = false
		}

	case connectedMsg:
		m.err = msg.err
		m.nc = msg.nc
		m.sub = msg.sub

	case eventMsg:
		if m.paused {
			m.dropped++
			return m, nil
		}
		atTail := m.selected >= len(m.visible())-1
		m.rows = append(m.rows, eventRow(msg))
		if len(m.rows) > maxRows {
			m.rows = m.rows[len(m.rows)-maxRows:]
		}
		// Follow the tail unless the user scrolled up.
		if atTail {
			m.selected = len(m.visible()) - 1
		}
	}

	return m, nil
}

// visible applies the leaf/summary filter to the row buffer.
func (m *tailModel) visible() []eventRow {
	q := strings.ToLower(m.filter.Value())
	if q == "" {
		return m.rows
	}
	var out []eventRow
	for _, r := range m.rows {
		if strings.Contains(strings.ToLower(r.leaf), q) ||
			strings.Contains(strings.ToLower(r.summary), q) {
			out = append(out, r)
		}
	}
	return out
}

func (m *tailModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("notify tail"))
	b.WriteString(" ")
	b.WriteString(m.subject)
	if m.paused {
		b.WriteString(" ")
		b.WriteString(pausedStyle.Render(fmt.Sprintf("[paused, %d skipped]", m.dropped)))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(unknownStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)))
		return b.String()
	}

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	rows := m.visible()
	if len(rows) == 0 {
		b.WriteString("Waiting for events...\n\n")
		b.WriteString(helpStyle.Render("/ filter • p pause • q quit"))
		return b.String()
	}
	if m.selected >= len(rows) {
		m.selected = len(rows) - 1
	}

	if m.detail {
		r := rows[m.selected]
		b.WriteString(subjectStyle.Render(r.subject))
		b.WriteString("\n\n")
		b.WriteString(prettyJSON(r.body))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
		return b.String()
	}

	start := 0
	if len(rows) > 20 {
		start = len(rows) - 20
		if m.selected < start {
			start = m.selected
		}
	}
	for i := start; i < len(rows) && i < start+20; i++ {
		r := rows[i]
		leaf := leafStyle.Render(r.leaf)
		if r.unknown {
			leaf = unknownStyle.Render(r.leaf)
		}
		line := fmt.Sprintf("%s  %-24s  %s",
			r.received.Format("15:04:05.000"), leaf, r.summary)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • enter detail • / filter • p pause • q quit"))
	return b.String()
}

func prettyJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// rowFromMsg extracts the list columns from a published event.
func rowFromMsg(msg *nats.Msg) eventRow {
	row := eventRow{
		received: time.Now(),
		subject:  msg.Subject,
		body:     msg.Data,
	}
	var body struct {
		Msg     string   `json:"msg"`
		Leaf    string   `json:"leaf"`
		Path    []string `json:"path"`
		Unknown bool     `json:"unknown"`
	}
	if err := json.Unmarshal(msg.Data, &body); err == nil {
		row.summary = body.Msg
		row.leaf = body.Leaf
		row.unknown = body.Unknown
	}
	if row.leaf == "" {
		row.leaf = "?"
	}
	return row
}

func runInteractive(url, subject string) error {
	p := tea.NewProgram(newTailModel(url, subject), tea.WithAltScreen())

	go func() {
		nc, err := relay.Connect(url, "notifytail")
		if err != nil {
			p.Send(connectedMsg{err: err})
			return
		}
		sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			p.Send(eventMsg(rowFromMsg(msg)))
		})
		if err != nil {
			nc.Close()
			p.Send(connectedMsg{err: err})
			return
		}
		p.Send(connectedMsg{nc: nc, sub: sub})
	}()

	_, err := p.Run()
	return err
}
