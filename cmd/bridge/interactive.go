package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/translator-bridge/bridge"
	"github.com/wippyai/translator-bridge/dictionary"
	"github.com/wippyai/translator-bridge/host"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxSuggestions = 8

type browseMode int

const (
	modeLookup browseMode = iota
	modeTransliterate
)

type browserModel struct {
	err         error
	b           *bridge.Bridge
	index       *dictionary.Reader
	path        string
	result      string
	suggestions []string
	input       textinput.Model
	dict        bridge.Handle
	mucab       bridge.Handle
	selected    int
	mode        browseMode
	spaced      bool
}

type resultMsg struct {
	err    error
	result string
}

func newBrowserModel(b *bridge.Bridge, opts options) (*browserModel, error) {
	dict := b.TarkkaOpen(opts.Dict)
	if dict == 0 {
		return nil, fmt.Errorf("open dictionary %s", opts.Dict)
	}
	index, err := dictionary.OpenFile(opts.Dict)
	if err != nil {
		b.TarkkaClose(dict)
		return nil, err
	}

	m := &browserModel{
		b:        b,
		index:    index,
		path:     opts.Dict,
		dict:     dict,
		spaced:   opts.Spaced,
		selected: -1,
	}
	if opts.Mucab != "" {
		if m.mucab = b.MucabOpen(opts.Mucab); m.mucab == 0 {
			m.close()
			return nil, fmt.Errorf("open transliteration dictionary %s", opts.Mucab)
		}
	}

	ti := textinput.New()
	ti.Placeholder = "word"
	ti.Prompt = "lookup: "
	ti.Width = 40
	ti.Focus()
	m.input = ti
	return m, nil
}

func (m *browserModel) close() {
	_ = m.index.Close()
	m.b.TarkkaClose(m.dict)
	m.b.MucabClose(m.mucab)
}

func (m *browserModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "up":
			if m.selected >= 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.selected < len(m.suggestions)-1 {
				m.selected++
			}
			return m, nil

		case "tab":
			if m.mucab != 0 {
				m.toggleMode()
			}
			return m, nil

		case "enter":
			query := m.input.Value()
			if m.selected >= 0 && m.selected < len(m.suggestions) {
				query = m.suggestions[m.selected]
				m.input.SetValue(query)
			}
			if strings.TrimSpace(query) == "" {
				return m, nil
			}
			return m, m.query(query)
		}

	case resultMsg:
		m.result = msg.result
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	prev := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != prev {
		m.refreshSuggestions()
	}
	return m, cmd
}

func (m *browserModel) toggleMode() {
	if m.mode == modeLookup {
		m.mode = modeTransliterate
		m.input.Prompt = "romaji: "
		m.input.Placeholder = "日本語"
	} else {
		m.mode = modeLookup
		m.input.Prompt = "lookup: "
		m.input.Placeholder = "word"
	}
	m.suggestions = nil
	m.selected = -1
	m.refreshSuggestions()
}

func (m *browserModel) refreshSuggestions() {
	m.selected = -1
	if m.mode != modeLookup || m.input.Value() == "" {
		m.suggestions = nil
		return
	}
	m.suggestions = m.index.Keys(m.input.Value(), maxSuggestions)
}

func (m *browserModel) query(q string) tea.Cmd {
	mode := m.mode
	return func() tea.Msg {
		env := host.NewHeap()
		if mode == modeTransliterate {
			ref := m.b.MucabTransliterateJP(env, m.mucab, q, m.spaced)
			if ref == host.Null {
				return resultMsg{err: fmt.Errorf("transliteration failed")}
			}
			v, err := env.Resolve(ref)
			if err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{result: v.(string)}
		}

		ref, status := m.b.TarkkaLookupStatus(env, m.dict, q)
		switch status {
		case bridge.LookupNotFound:
			return resultMsg{err: fmt.Errorf("%q not found", q)}
		case bridge.LookupFailed:
			return resultMsg{err: fmt.Errorf("lookup of %q failed", q)}
		}
		v, err := env.Resolve(ref)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{result: renderWord(v.(*host.Object), func(s lipgloss.Style, t string) string {
			return s.Render(t)
		})}
	}
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Dictionary"))
	b.WriteString(" ")
	b.WriteString(m.path)
	fmt.Fprintf(&b, " %s\n\n", dimStyle.Render(fmt.Sprintf("(%d words)", m.index.Len())))

	b.WriteString(m.input.View())
	b.WriteString("\n")
	for i, s := range m.suggestions {
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + s))
		} else {
			b.WriteString("  " + s)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	} else if m.result != "" {
		b.WriteString(m.result)
		b.WriteString("\n\n")
	}

	help := "↑/↓ suggestions • enter look up • esc quit"
	if m.mucab != 0 {
		help = "↑/↓ suggestions • enter run • tab lookup/romaji • esc quit"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func runInteractive(b *bridge.Bridge, opts options) error {
	m, err := newBrowserModel(b, opts)
	if err != nil {
		return err
	}
	defer m.close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
