package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasi-sockets/host"
	"github.com/wippyai/wasi-sockets/resource"
)

const maxLogLines = 12

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	mod      *host.Module
	cancel   context.CancelFunc
	filename string
	events   []string
	output   []string
	table    table.Model
	code     uint32
	done     bool
}

// readyMsg carries the module once the host side is instantiated.
type readyMsg struct{ mod *host.Module }

type resourceMsg resource.Event

type outputMsg string

type exitMsg struct {
	err  error
	code uint32
}

func newInteractiveModel(filename string, cancel context.CancelFunc) *interactiveModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Handle", Width: 8},
			{Title: "Kind", Width: 10},
			{Title: "Family", Width: 10},
			{Title: "Type", Width: 12},
			{Title: "Host FD", Width: 8},
		}),
		table.WithHeight(8),
		table.WithFocused(true),
	)
	return &interactiveModel{
		filename: filename,
		cancel:   cancel,
		table:    t,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			return m, tea.Quit
		}

	case readyMsg:
		m.mod = msg.mod
		m.refresh()

	case resourceMsg:
		m.pushEvent(formatEvent(resource.Event(msg)))
		m.refresh()

	case outputMsg:
		m.output = appendCapped(m.output, string(msg))

	case exitMsg:
		m.done = true
		m.code = msg.code
		m.err = msg.err
		m.refresh()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *interactiveModel) pushEvent(s string) {
	m.events = appendCapped(m.events, s)
}

func appendCapped(lines []string, s string) []string {
	lines = append(lines, s)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

func (m *interactiveModel) refresh() {
	if m.mod == nil {
		return
	}
	var rows []table.Row
	for _, e := range m.mod.Entries() {
		rows = append(rows, table.Row{
			strconv.FormatUint(uint64(e.Handle), 10),
			e.Kind.String(),
			e.Family.String(),
			e.Type.String(),
			strconv.FormatInt(int64(e.FD), 10),
		})
	}
	m.table.SetRows(rows)
}

func formatEvent(e resource.Event) string {
	kind := host.KindOf(e.Value).String()
	return fmt.Sprintf("%-15s fd=%d %s", e.Type, e.Handle, kind)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wasisock"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	b.WriteString("Descriptors:\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	b.WriteString("Events:\n")
	for _, e := range m.events {
		b.WriteString(eventStyle.Render(e))
		b.WriteString("\n")
	}
	b.WriteString("\nOutput:\n")
	for _, line := range m.output {
		b.WriteString(outputStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.done:
		b.WriteString(resultStyle.Render(fmt.Sprintf("Exited with code %d", m.code)))
	default:
		b.WriteString("Running...")
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("↑/↓ scroll • q quit"))

	return b.String()
}

// lineWriter forwards complete lines of guest output to the program.
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	send func(tea.Msg)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line; keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		w.send(outputMsg(strings.TrimRight(line, "\r\n")))
	}
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.send(outputMsg(w.buf.String()))
		w.buf.Reset()
	}
}

// tableWatcher forwards descriptor lifecycle events to the program.
type tableWatcher struct {
	send func(tea.Msg)
}

func (w *tableWatcher) OnResourceEvent(e resource.Event) {
	switch e.Type {
	case resource.EventBorrowed, resource.EventBorrowReturned:
		return
	}
	w.send(resourceMsg(e))
}

func runInteractive(opts options) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts.quiet = true
	model := newInteractiveModel(opts.wasm, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())

	out := &lineWriter{send: p.Send}
	obs := &tableWatcher{send: p.Send}
	go func() {
		var watched *host.Module
		code, err := run(ctx, opts, out, out, func(mod *host.Module) {
			watched = mod
			mod.Table().Subscribe(obs)
			p.Send(readyMsg{mod: mod})
		})
		if watched != nil {
			watched.Table().Unsubscribe(obs)
		}
		out.flush()
		p.Send(exitMsg{code: code, err: err})
	}()

	_, err := p.Run()
	return err
}
