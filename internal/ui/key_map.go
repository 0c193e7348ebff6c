package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	submit   key.Binding
	annotate key.Binding
	another  key.Binding
	quit     key.Binding
	cancel   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "build playlist")),
		annotate: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "history")),
		another:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new prompt")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		cancel:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.submit},
		{k.annotate, k.another, k.quit},
	}
}
