package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spottyg/internal/tasks"
	"github.com/desertthunder/spottyg/internal/web"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PromptView ViewState = iota
	RunningView
	ResultView
)

// progressLines is how many recent progress messages the running view keeps.
const progressLines = 6

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.PlaylistEngine
	autoAnnotate bool
	width        int
	height       int
	input        textinput.Model
	spinner      spinner.Model
	trackList    list.Model
	prompt       string
	progressChan chan tasks.ProgressUpdate
	runDone      chan Msg
	progress     tasks.ProgressUpdate
	log          []string
	result       *tasks.RunResult
	annotation   string
	annotating   bool
	loading      string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model over engine. With autoAnnotate the annotation is requested as soon as a
// playlist exists; otherwise it waits for the annotate key.
func NewModel(ctx context.Context, engine *tasks.PlaylistEngine, autoAnnotate bool) *Model {
	input := textinput.New()
	input.Placeholder = "sad indie rock for a rainy afternoon"
	input.CharLimit = 200
	input.Width = 60
	input.Prompt = "♪ "
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:          ctx,
		view:         PromptView,
		engine:       engine,
		autoAnnotate: autoAnnotate,
		input:        input,
		spinner:      s,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init starts the cursor blinking in the prompt.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ResultView {
			m.trackList.SetSize(m.listSize())
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PromptView:
			return m.handlePromptKeys(msg)
		case RunningView:
			if key.Matches(msg, m.keys.cancel) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != RunningView && !m.annotating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		m.log = append(m.log, m.progress.Message)
		if len(m.log) > progressLines {
			m.log = m.log[len(m.log)-progressLines:]
		}
		return m, m.waitForProgress()

	case MsgRunComplete:
		outcome := msg.data.(runOutcome)
		m.progressChan = nil
		m.runDone = nil
		m.result = outcome.result
		m.err = outcome.err
		m.view = ResultView
		if m.err != nil || m.result == nil {
			return m, nil
		}

		m.trackList = list.New(resultItems(m.result), list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = m.result.Playlist.Name
		m.trackList.SetShowHelp(false)
		m.trackList.SetSize(m.listSize())

		if m.autoAnnotate {
			return m, m.startAnnotation()
		}
		return m, nil

	case MsgAnnotationReady:
		a := msg.data.(annotation)
		if m.result == nil || a.runID != m.result.RunID {
			return m, nil
		}
		m.annotating = false
		m.annotation = a.text
		return m, nil
	}
	return m, nil
}

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		return m, tea.Quit
	case key.Matches(msg, m.keys.submit):
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return m, nil
		}
		return m, m.startRun(prompt)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.another):
		m.reset()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.annotate):
		if m.result != nil && m.err == nil && !m.annotating && m.annotation == "" {
			return m, m.startAnnotation()
		}
		return m, nil
	}

	if m.err != nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PromptView:
		m.input, cmd = m.input.Update(msg)
	case ResultView:
		if m.err == nil && m.result != nil {
			m.trackList, cmd = m.trackList.Update(msg)
		}
	}
	return m, cmd
}

func (m *Model) reset() {
	m.view = PromptView
	m.prompt = ""
	m.log = nil
	m.progress = tasks.ProgressUpdate{}
	m.result = nil
	m.annotation = ""
	m.annotating = false
	m.err = nil
	m.input.Reset()
	m.input.Focus()
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 20), max(m.height-14, 5)
}

// startRun hands prompt to the engine in the background and returns the command that relays its progress.
func (m *Model) startRun(prompt string) tea.Cmd {
	m.prompt = prompt
	m.view = RunningView
	m.log = nil
	m.input.Blur()

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.runDone = done

	go func() {
		result, err := m.engine.Run(m.ctx, prompt, progress)
		close(progress)
		done <- runCompleteMsg(result, err)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// waitForProgress blocks on the next progress update, or on the run outcome once the updates stop.
func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.runDone
	if progress == nil {
		return nil
	}

	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) startAnnotation() tea.Cmd {
	m.annotating = true
	m.loading = web.LoadingPhrase()

	ctx := m.ctx
	engine := m.engine
	runID := m.result.RunID
	name := m.result.Playlist.Name
	tracks := m.result.Tracks

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return annotationReadyMsg(runID, engine.Annotate(ctx, name, tracks))
	})
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PromptView:
		return m.renderPrompt()
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderPrompt() string {
	title := styles.title.Render(web.WelcomeMessage)
	intro := "What should your next playlist sound like?"

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.cancel})
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, intro, m.input.View(), helpView)
}

func (m *Model) renderRunning() string {
	title := styles.title.Render(fmt.Sprintf("Building a playlist for %q", m.prompt))
	status := fmt.Sprintf("%s %s", m.spinner.View(), phaseText(m.progress))

	var log strings.Builder
	for _, line := range m.log {
		log.WriteString(styles.help.Render(line))
		log.WriteString("\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.cancel})
	return fmt.Sprintf("%s\n%s\n\n%s\n%s", title, status, log.String(), helpView)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.another, m.keys.quit}

	if m.err != nil {
		msg := styles.err.Render(fmt.Sprintf("Playlist generation failed: %v", m.err))
		if tasks.IsAuthError(m.err) {
			msg += "\n\nRun `spottyg spotify auth` to sign in again."
		}
		return fmt.Sprintf("%s\n\n%s", msg, m.help.ShortHelpView(helpKeys))
	}
	if m.result == nil || m.result.Playlist == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), m.help.ShortHelpView(helpKeys))
	}

	var b strings.Builder
	b.WriteString(styles.ok.Render(fmt.Sprintf("✓ %d tracks added", len(m.result.Tracks))))
	b.WriteString("\n")
	b.WriteString(m.result.Playlist.URL)
	b.WriteString("\n\n")
	b.WriteString(m.trackList.View())
	b.WriteString("\n")

	for _, w := range m.result.Warnings {
		b.WriteString(styles.warn.Render("! " + w))
		b.WriteString("\n")
	}

	switch {
	case m.annotating:
		fmt.Fprintf(&b, "\n%s %s\n", m.spinner.View(), styles.help.Render(m.loading))
	case m.annotation != "":
		fmt.Fprintf(&b, "\n%s\n", styles.quote.Width(max(m.width-6, 40)).Render(m.annotation))
	default:
		helpKeys = append([]key.Binding{m.keys.annotate}, helpKeys...)
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(append([]key.Binding{m.keys.up, m.keys.down}, helpKeys...)))
	return b.String()
}

func phaseText(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.Idle, tasks.ResolvingCredential:
		return "Checking your Spotify session..."
	case tasks.ResolvingTracks:
		return "Asking for track suggestions..."
	case tasks.SearchingCatalog:
		if u.Total > 1 {
			return fmt.Sprintf("Searching Spotify (%d/%d)", u.Step, u.Total)
		}
		return "Searching Spotify..."
	case tasks.Materializing:
		return "Creating the playlist..."
	case tasks.Materialized, tasks.Done:
		return "Playlist ready"
	default:
		return "Working..."
	}
}
