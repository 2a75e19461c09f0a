// Package tui provides the terminal user interface for TXray.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/txray-labs/txray/internal/chat"
	"github.com/txray-labs/txray/internal/client"
	"github.com/txray-labs/txray/internal/payment"
	"github.com/txray-labs/txray/internal/sse"
)

// streamer sends one chat turn to the backend and invokes fn per decoded
// event. *client.Client satisfies it; tests substitute a stub.
type streamer interface {
	Stream(ctx context.Context, req client.Request, fn func(sse.Event)) error
}

// streamEventMsg signals that the in-flight turn absorbed another event.
type streamEventMsg struct{}

// streamDoneMsg signals that a turn's stream finished.
type streamDoneMsg struct {
	turn *chat.Turn
	err  error
}

// Model is the main TUI model.
type Model struct {
	list   *chat.List
	client streamer

	width  int
	height int

	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	turn     *chat.Turn
	cancel   context.CancelFunc
	events   chan tea.Msg
	payment  *payment.Required
	showHelp bool

	err error
}

// New creates the TUI model over an already-seeded conversation list.
func New(list *chat.List, c streamer) Model {
	ti := textinput.New()
	ti.Placeholder = "Paste a tx hash or ask about a trade..."
	ti.CharLimit = 2000
	ti.Prompt = inputPromptStyle.Render("❯ ")
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = stepActiveStyle

	return Model{
		list:    list,
		client:  c,
		input:   ti,
		spinner: sp,
		events:  make(chan tea.Msg, 64),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForStream())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - sidebarWidth - 8
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(m.chatWidth()-2),
		)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamEventMsg:
		return m, m.waitForStream()

	case streamDoneMsg:
		m.finishTurn(msg)
		return m, m.waitForStream()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, keys.Escape):
		if m.payment != nil {
			m.payment = nil
			return m, nil
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.cancel != nil {
			m.cancel()
		}
		return m, nil

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, keys.NewChat):
		m.list.SetCurrent("")
		m.err = nil
		return m, nil

	case key.Matches(msg, keys.DeleteChat):
		if id := m.list.CurrentID(); id != "" {
			m.list.Delete(id)
		}
		return m, nil

	case key.Matches(msg, keys.NextChat):
		m.cycleConversation(1)
		return m, nil

	case key.Matches(msg, keys.PrevChat):
		m.cycleConversation(-1)
		return m, nil

	case key.Matches(msg, keys.Enter):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a turn for the current input text.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.turn != nil {
		return m, nil
	}
	m.input.Reset()
	m.err = nil
	m.payment = nil

	turn := m.list.StartTurn(m.list.CurrentID(), text)
	ctx, cancel := context.WithCancel(context.Background())
	m.turn = turn
	m.cancel = cancel

	req := client.Request{
		Message:        text,
		ConversationID: turn.RequestConversationID(),
	}

	events := m.events
	c := m.client
	go func() {
		err := c.Stream(ctx, req, func(ev sse.Event) {
			turn.Apply(ev)
			select {
			case events <- streamEventMsg{}:
			default:
			}
		})
		events <- streamDoneMsg{turn: turn, err: err}
	}()

	return m, m.spinner.Tick
}

// finishTurn resolves a completed stream against its turn.
func (m *Model) finishTurn(msg streamDoneMsg) {
	if msg.turn != m.turn {
		return
	}
	m.turn = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	var payErr *payment.RequiredError
	switch {
	case msg.err == nil:
	case errors.As(msg.err, &payErr):
		msg.turn.Discard()
		m.payment = &payErr.Required
	default:
		msg.turn.Fail()
		m.err = msg.err
	}
}

func (m *Model) cycleConversation(dir int) {
	convs := m.list.All()
	if len(convs) == 0 {
		return
	}
	current := m.list.CurrentID()
	idx := -1
	for i, conv := range convs {
		if conv.ID == current {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(convs)) % len(convs)
	m.list.SetCurrent(convs[idx].ID)
}

func (m Model) chatWidth() int {
	w := m.width - sidebarWidth - 2
	if w < 20 {
		w = 20
	}
	return w
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return renderHelp(m.width, m.height)
	}

	paneHeight := m.height - 4

	if m.payment != nil {
		return renderPaymentOverlay(*m.payment, m.width, m.height)
	}

	sidebar := renderSidebar(m.list.All(), m.list.CurrentID(), paneHeight)
	chatPane := renderChatPane(m.list.Get(m.list.CurrentID()), m.chatWidth(), paneHeight, m.renderer, m.spinner.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", chatPane)

	var status string
	if m.err != nil {
		status = statusErrStyle.Render(fmt.Sprintf("error: %v", m.err))
	} else if m.turn != nil {
		status = statusBarStyle.Render(m.spinner.View() + " analyzing · esc to cancel")
	} else {
		status = statusBarStyle.Render("enter send · ctrl+n new · ctrl+d delete · tab switch · ctrl+g help · ctrl+c quit")
	}

	return body + "\n" + inputStyle.Width(m.width).Render(m.input.View()) + "\n" + status
}

func renderHelp(width, height int) string {
	rows := []string{
		titleStyle.Render("⬡ TXRAY"),
		"",
		"enter       send message",
		"esc         cancel stream / dismiss overlay",
		"ctrl+n      new conversation",
		"ctrl+d      delete conversation",
		"tab         next conversation",
		"shift+tab   previous conversation",
		"ctrl+g      toggle help",
		"ctrl+c      quit",
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		helpStyle.Render(strings.Join(rows, "\n")))
}

func (m Model) waitForStream() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

// Key bindings
var keys = struct {
	Quit       key.Binding
	Escape     key.Binding
	Enter      key.Binding
	Help       key.Binding
	NewChat    key.Binding
	DeleteChat key.Binding
	NextChat   key.Binding
	PrevChat   key.Binding
}{
	Quit:       key.NewBinding(key.WithKeys("ctrl+c")),
	Escape:     key.NewBinding(key.WithKeys("esc")),
	Enter:      key.NewBinding(key.WithKeys("enter")),
	Help:       key.NewBinding(key.WithKeys("ctrl+g")),
	NewChat:    key.NewBinding(key.WithKeys("ctrl+n")),
	DeleteChat: key.NewBinding(key.WithKeys("ctrl+d")),
	NextChat:   key.NewBinding(key.WithKeys("tab")),
	PrevChat:   key.NewBinding(key.WithKeys("shift+tab")),
}
