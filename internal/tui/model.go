package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

// ChatPort is the TUI-facing subset of the daemon API client.
type ChatPort interface {
	Chat(ctx context.Context, messages []domain.ChatMessage, system string, rag bool) (string, error)
}

// Model is the Bubble Tea model for the terminal chat client. It keeps the
// whole conversation and sends it on every turn so the daemon sees full
// history.
type Model struct {
	api      ChatPort
	input    textinput.Model
	viewport viewport.Model
	history  []domain.ChatMessage
	status   string
	rag      bool
	waiting  bool
	ready    bool
}

type replyMsg struct {
	content string
	err     error
}

// New creates a new chat model talking to the given daemon client.
func New(api ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask the daemon and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{api: api, input: ti, viewport: vp, rag: true, status: "Connected. Ctrl+R toggles retrieval."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header + status + input box + spacer
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderHistory())
		return m, nil
	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.history = append(m.history, domain.ChatMessage{Role: domain.RoleAssistant, Content: msg.content})
			m.status = statusLine(m.rag)
		}
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+r":
			m.rag = !m.rag
			m.status = statusLine(m.rag)
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.history = append(m.history, domain.ChatMessage{Role: domain.RoleUser, Content: q})
				m.input.SetValue("")
				m.waiting = true
				m.status = "Thinking..."
				m.viewport.SetContent(m.renderHistory())
				m.viewport.GotoBottom()
				history := append([]domain.ChatMessage(nil), m.history...)
				rag := m.rag
				api := m.api
				return m, func() tea.Msg {
					reply, err := api.Chat(context.Background(), history, "", rag)
					return replyMsg{content: reply, err: err}
				}
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("GhostNet Daemon")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No messages yet."
	}
	parts := make([]string, 0, len(m.history))
	for _, msg := range m.history {
		switch msg.Role {
		case domain.RoleUser:
			parts = append(parts, userStyle.Render("you: ")+msg.Content)
		default:
			parts = append(parts, daemonStyle.Render("daemon: ")+msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func statusLine(rag bool) string {
	if rag {
		return "Retrieval on. Ctrl+R toggles, Ctrl+C quits."
	}
	return "Retrieval off. Ctrl+R toggles, Ctrl+C quits."
}

var (
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	daemonStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
