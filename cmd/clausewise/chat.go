// This file implements the interactive chat interface using bubbletea.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"clausewise/internal/review"
	"clausewise/internal/tools"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	toolStyle      = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpBarStyle   = lipgloss.NewStyle().Faint(true)
)

const banner = `┌─────────────────────────────────────────────┐
│  clausewise · 合同审核智能体                │
│  审核合同 <路径> 加载合同，help 查看命令    │
└─────────────────────────────────────────────┘`

type chatMessage struct {
	role    string // "user", "assistant", "tool", "error"
	content string
	time    time.Time
}

type (
	responseMsg string
	errorMsg    error
	toolLogMsg  struct {
		name       string
		durationMs int64
		ok         bool
	}
	autoDoneMsg struct {
		sections int
		issues   int
		err      error
	}
	quitSavedMsg string
)

// chatModel is the bubbletea model for the interactive session.
type chatModel struct {
	app *app
	ctx context.Context

	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer

	history   []chatMessage
	isLoading bool
	loadNote  string
	quitting  bool
	width     int
	height    int
	ready     bool

	toolEvents chan toolLogMsg
}

func initChat(ctx context.Context, a *app) chatModel {
	ti := textinput.New()
	ti.Placeholder = "输入命令或与审核助手对话…（Enter 发送，Ctrl+C 退出）"
	ti.Focus()
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.SetContent("")

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return chatModel{
		app:        a,
		ctx:        ctx,
		textinput:  ti,
		viewport:   vp,
		spinner:    sp,
		renderer:   renderer,
		toolEvents: make(chan toolLogMsg, 32),
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// waitForToolEvent relays background tool activity into the update loop.
func (m chatModel) waitForToolEvent() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-m.toolEvents; ok {
			return ev
		}
		return nil
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.beginQuit()
		case tea.KeyEnter:
			if !m.isLoading {
				return m.handleSubmit()
			}
		}
		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 5
		footerHeight := 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.textinput.Width = msg.Width - 4
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-8),
		)
		m.viewport.SetContent(m.renderHistory())

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case toolLogMsg:
		if m.app.cfg.Agent.ShowToolLog {
			m.history = append(m.history, chatMessage{
				role:    "tool",
				content: fmt.Sprintf("工具 %s 完成 (%dms, 成功=%v)", msg.name, msg.durationMs, msg.ok),
				time:    time.Now(),
			})
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
		}
		return m, m.waitForToolEvent()

	case responseMsg:
		m.isLoading = false
		m.loadNote = ""
		m.appendAssistant(string(msg))

	case autoDoneMsg:
		m.isLoading = false
		m.loadNote = ""
		if msg.err != nil {
			m.appendError(msg.err)
		} else {
			m.appendAssistant(fmt.Sprintf(
				"自动审核完成！共审核 %d 个章节，发现 %d 个问题点。\n\n输入 'export' 导出审核报告，或 'status' 查看详情。",
				msg.sections, msg.issues))
		}

	case errorMsg:
		m.isLoading = false
		m.loadNote = ""
		m.appendError(msg)

	case quitSavedMsg:
		if string(msg) != "" {
			fmt.Println(string(msg))
		}
		return m, tea.Quit
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *chatModel) appendAssistant(content string) {
	m.history = append(m.history, chatMessage{role: "assistant", content: content, time: time.Now()})
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m *chatModel) appendError(err error) {
	m.history = append(m.history, chatMessage{role: "error", content: err.Error(), time: time.Now()})
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}
	m.textinput.Reset()

	m.history = append(m.history, chatMessage{role: "user", content: input, time: time.Now()})
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()

	result := m.app.handleCommand(input)
	if result.handled {
		if result.quit {
			return m.beginQuit()
		}
		if result.autoReview {
			m.isLoading = true
			m.loadNote = "自动审核进行中…"
			return m, tea.Batch(m.spinner.Tick, m.waitForToolEvent(), m.runAutoReview())
		}
		if result.response != "" {
			m.appendAssistant(result.response)
		}
		return m, nil
	}

	m.isLoading = true
	m.loadNote = "思考中…"
	return m, tea.Batch(m.spinner.Tick, m.waitForToolEvent(), m.processInput(input))
}

func (m chatModel) processInput(input string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.app.reviewer.Respond(m.ctx, input, nil, m.onToolCall)
		if err != nil {
			return errorMsg(err)
		}
		return responseMsg(answer)
	}
}

func (m chatModel) runAutoReview() tea.Cmd {
	return func() tea.Msg {
		err := m.app.reviewer.AutoReview(m.ctx, nil, nil, m.onToolCall)
		return autoDoneMsg{
			sections: m.app.led.TotalSections(),
			issues:   m.app.led.TotalIssues(),
			err:      err,
		}
	}
}

func (m chatModel) onToolCall(name string, res *tools.Result) {
	select {
	case m.toolEvents <- toolLogMsg{name: name, durationMs: res.DurationMs, ok: res.IsSuccess()}:
	default:
	}
}

// beginQuit exports the report when findings exist, saves the transcript,
// and quits.
func (m chatModel) beginQuit() (tea.Model, tea.Cmd) {
	m.quitting = true
	a := m.app
	return m, func() tea.Msg {
		var notes []string
		if a.led.TotalIssues() > 0 {
			if path, err := review.WriteReport(a.led, a.reportsDir()); err == nil {
				notes = append(notes, "审核报告已导出到："+path)
			}
		}
		if logPath, err := a.saveSessionLog(); err == nil && logPath != "" {
			notes = append(notes, "会话日志已保存到："+logPath)
		}
		notes = append(notes, "再见！")
		return quitSavedMsg(strings.Join(notes, "\n"))
	}
}

func (m chatModel) renderHistory() string {
	var sb strings.Builder
	for _, msg := range m.history {
		switch msg.role {
		case "user":
			sb.WriteString(userStyle.Render("你") + "\n")
			sb.WriteString(msg.content)
			sb.WriteString("\n\n")
		case "tool":
			sb.WriteString(toolStyle.Render("· "+msg.content) + "\n")
		case "error":
			sb.WriteString(errorStyle.Render("错误: "+msg.content) + "\n\n")
		default:
			sb.WriteString(assistantStyle.Render("⚖ 审核助手") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.content))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery; glamour can
// choke on odd model output.
func (m chatModel) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

// prompt shows section progress once a contract is loaded.
func (m chatModel) prompt() string {
	if m.app.led.ContractName() == "" {
		return "> "
	}
	return fmt.Sprintf("[%d/%d]> ", m.app.led.CurrentIndex()+1, m.app.led.TotalSections())
}

func (m chatModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "初始化中…"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(banner) + "\n")
	sb.WriteString(m.viewport.View() + "\n")
	if m.isLoading {
		sb.WriteString(m.spinner.View() + " " + m.loadNote + "\n")
	}
	m.textinput.Prompt = m.prompt()
	sb.WriteString(m.textinput.View() + "\n")
	sb.WriteString(helpBarStyle.Render("Enter 发送 · help 查看命令 · Ctrl+C 退出"))
	return sb.String()
}

// runInteractiveChat starts the bubbletea session.
func runInteractiveChat() error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	p := tea.NewProgram(initChat(ctx, a), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
