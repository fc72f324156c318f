package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/wasi-sockets/resource"
)

func TestLineWriter(t *testing.T) {
	var got []string
	w := &lineWriter{send: func(msg tea.Msg) {
		got = append(got, string(msg.(outputMsg)))
	}}

	_, _ = w.Write([]byte("hel"))
	_, _ = w.Write([]byte("lo\nwor"))
	_, _ = w.Write([]byte("ld\r\npartial"))
	w.flush()

	want := []string{"hello", "world", "partial"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestInteractiveModel_Update(t *testing.T) {
	canceled := false
	m := newInteractiveModel("guest.wasm", func() { canceled = true })

	m.Update(resourceMsg(resource.Event{Type: resource.EventCreated, Handle: 3}))
	m.Update(outputMsg("listening"))
	if len(m.events) != 1 || !strings.Contains(m.events[0], "fd=3") {
		t.Errorf("events = %q", m.events)
	}

	for i := 0; i < maxLogLines+5; i++ {
		m.Update(outputMsg("line"))
	}
	if len(m.output) != maxLogLines {
		t.Errorf("output kept %d lines, want %d", len(m.output), maxLogLines)
	}

	m.Update(exitMsg{code: 3})
	if !m.done || !strings.Contains(m.View(), "Exited with code 3") {
		t.Errorf("view after exit:\n%s", m.View())
	}

	m.Update(exitMsg{err: errors.New("trap")})
	if !strings.Contains(m.View(), "Error: trap") {
		t.Errorf("view after error:\n%s", m.View())
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !canceled || cmd == nil {
		t.Error("q should cancel the guest and quit")
	}
}

func TestTableWatcher_Unsubscribe(t *testing.T) {
	var got []resource.EventType
	w := &tableWatcher{send: func(msg tea.Msg) {
		got = append(got, resource.Event(msg.(resourceMsg)).Type)
	}}

	table := resource.NewTable()
	table.Subscribe(w)
	h, _ := table.Insert(1, "x")
	table.Borrow(h)
	table.ReturnBorrow(h)
	table.Unsubscribe(w)
	table.Remove(h)

	if len(got) != 1 || got[0] != resource.EventCreated {
		t.Fatalf("events = %v, want only created", got)
	}
}
