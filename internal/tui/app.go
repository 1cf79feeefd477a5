package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"shipdeck/internal/api"
	"shipdeck/internal/domain"
	"shipdeck/internal/resource"
)

// CollectionRefreshedMsg is sent when the delivery list has been re-fetched.
// It is exported so that tests can inject it directly into AppModel.Update.
type CollectionRefreshedMsg struct {
	Err error
}

// DeliveryRefreshedMsg is sent when the focused delivery has been re-fetched.
type DeliveryRefreshedMsg struct {
	Err error
}

// ActionResultMsg is sent when a delivery action completes.
type ActionResultMsg struct {
	Action string
	Err    error
}

// StreamOpenedMsg carries the result of opening a live event stream.
type StreamOpenedMsg struct {
	Stream *api.Stream
	Err    error
}

// StreamEventMsg carries one live stream event; OK is false once the stream
// has ended and no further events will arrive.
type StreamEventMsg struct {
	Event domain.StreamEvent
	OK    bool
}

// LogLoadedMsg is sent when an archived stream log has been fetched.
type LogLoadedMsg struct {
	Log domain.StreamLog
	Err error
}

// tickMsg is sent by the auto-refresh ticker.
type tickMsg struct{}

// viewState indicates the current navigation level.
type viewState int

const (
	viewBoard viewState = iota
	viewDetail
	viewTranscript
)

const idleRefreshInterval = 30 * time.Second

// AppModel is the root Bubbletea model for shipdeck.
type AppModel struct {
	client       *api.Client
	collection   *resource.Collection
	pollInterval time.Duration

	view  viewState
	board BoardModel

	// Last failed board-level action, shown until dismissed or superseded.
	actionErr    error
	actionFailed string

	// Detail level
	handle *resource.Handle

	// Transcript level
	transcript TranscriptModel
	stream     *api.Stream

	// Reject reason input
	rejectInput  textinput.Model
	rejectTarget string
	rejecting    bool

	// Confirm prompt (approve / cancel / retry)
	confirmAction string
	confirmTarget string
	confirmLabel  string

	loading bool
	width   int
	height  int
}

// NewAppModel creates the root application model.
func NewAppModel(client *api.Client, pollInterval time.Duration) AppModel {
	input := textinput.New()
	input.Placeholder = "rejection reason"
	input.CharLimit = 200
	if pollInterval <= 0 {
		pollInterval = resource.DefaultPollInterval
	}
	return AppModel{
		client:       client,
		collection:   resource.NewCollection(client),
		pollInterval: pollInterval,
		board:        NewBoardModel(nil),
		rejectInput:  input,
		loading:      true,
	}
}

// Init triggers the initial load and the refresh ticker.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.refreshCollection(), tickEvery(m.pollInterval))
}

func (m AppModel) refreshCollection() tea.Cmd {
	collection := m.collection
	return func() tea.Msg {
		return CollectionRefreshedMsg{Err: collection.Refresh(context.Background())}
	}
}

func (m AppModel) refreshDelivery() tea.Cmd {
	handle := m.handle
	return func() tea.Msg {
		return DeliveryRefreshedMsg{Err: handle.Refresh(context.Background())}
	}
}

// runAction issues a board-level mutation and reports its result. The
// follow-up collection refresh reconciles whatever the backend applied.
func (m AppModel) runAction(action, id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		var err error
		ctx := context.Background()
		switch action {
		case "approve":
			err = client.Approve(ctx, id)
		case "cancel":
			err = client.Cancel(ctx, id)
		case "retry":
			err = client.Retry(ctx, id)
		default:
			err = client.Trigger(ctx, id, action)
		}
		return ActionResultMsg{Action: action, Err: err}
	}
}

func (m AppModel) rejectDelivery(id, reason string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return ActionResultMsg{Action: "reject", Err: client.Reject(context.Background(), id, reason)}
	}
}

func (m AppModel) handleAction(name string, run func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return ActionResultMsg{Action: name, Err: run(context.Background())}
	}
}

func (m AppModel) openStream(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		stream, err := client.OpenStream(context.Background(), id)
		return StreamOpenedMsg{Stream: stream, Err: err}
	}
}

func waitForStreamEvent(stream *api.Stream) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-stream.Events()
		return StreamEventMsg{Event: ev, OK: ok}
	}
}

func (m AppModel) loadLog(id, runID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		log, err := client.StreamLog(context.Background(), id, runID)
		return LogLoadedMsg{Log: log, Err: err}
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

// closeStream tears down the live connection, if any. Every path that leaves
// the transcript view goes through here.
func (m *AppModel) closeStream() {
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
	m.transcript = TranscriptModel{}
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case CollectionRefreshedMsg:
		m.loading = false
		m.board = m.board.UpdateColumns(m.collection.ByPhase())

	case DeliveryRefreshedMsg:
		// the view reads the handle directly; fetch errors surface there too

	case tickMsg:
		interval := idleRefreshInterval
		if m.collection.AnyRunning() {
			interval = m.pollInterval
		}
		cmds := []tea.Cmd{m.refreshCollection(), tickEvery(interval)}
		if m.handle != nil && m.view != viewBoard {
			if d, ok := m.handle.Delivery(); ok && d.Running() {
				cmds = append(cmds, m.refreshDelivery())
			}
		}
		return m, tea.Batch(cmds...)

	case ActionResultMsg:
		m.actionErr = msg.Err
		m.actionFailed = msg.Action
		return m, m.refreshCollection()

	case StreamOpenedMsg:
		if msg.Err != nil {
			m.transcript = m.transcript.Finish(api.StreamErrored)
			return m, nil
		}
		m.stream = msg.Stream
		return m, waitForStreamEvent(msg.Stream)

	case StreamEventMsg:
		if m.stream == nil {
			return m, nil
		}
		if !msg.OK {
			m.transcript = m.transcript.Finish(m.stream.Outcome())
			m.stream = nil
			return m, nil
		}
		m.transcript = m.transcript.Append(msg.Event)
		return m, waitForStreamEvent(m.stream)

	case LogLoadedMsg:
		if msg.Err != nil {
			return m, nil
		}
		m.transcript = NewArchivedTranscript(msg.Log)

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m AppModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.rejecting {
		return m.updateRejectInput(msg)
	}
	if m.confirmAction != "" {
		return m.updateConfirm(msg)
	}
	switch msg.String() {
	case "q", "ctrl+c":
		m.closeStream()
		return m, tea.Quit
	case "ctrl+r":
		m.loading = true
		return m, m.refreshCollection()
	}
	switch m.view {
	case viewBoard:
		return m.updateBoard(msg)
	case viewDetail:
		return m.updateDetail(msg)
	case viewTranscript:
		return m.updateTranscript(msg)
	}
	return m, nil
}

func (m AppModel) updateRejectInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.rejecting = false
		m.rejectInput.Reset()
		return m, nil
	case "enter":
		reason := strings.TrimSpace(m.rejectInput.Value())
		if reason == "" {
			return m, nil
		}
		target := m.rejectTarget
		m.rejecting = false
		m.rejectInput.Reset()
		if m.handle != nil && m.handle.ID() == target {
			handle := m.handle
			return m, m.handleAction("reject", func(ctx context.Context) error {
				return handle.Reject(ctx, reason)
			})
		}
		return m, m.rejectDelivery(target, reason)
	}
	var cmd tea.Cmd
	m.rejectInput, cmd = m.rejectInput.Update(msg)
	return m, cmd
}

func (m AppModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		action, target := m.confirmAction, m.confirmTarget
		m.confirmAction = ""
		m.confirmTarget = ""
		if m.handle != nil && m.handle.ID() == target {
			handle := m.handle
			switch action {
			case "approve":
				return m, m.handleAction(action, handle.Approve)
			case "cancel":
				return m, m.handleAction(action, handle.Cancel)
			case "retry":
				return m, m.handleAction(action, handle.Retry)
			}
		}
		return m, m.runAction(action, target)
	case "q", "ctrl+c":
		return m, tea.Quit
	default:
		m.confirmAction = ""
		m.confirmTarget = ""
		return m, nil
	}
}

func (m AppModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.board = m.board.MoveLeft()
	case "right", "l":
		m.board = m.board.MoveRight()
	case "down", "j":
		m.board = m.board.MoveDown()
	case "up", "k":
		m.board = m.board.MoveUp()
	case "d":
		m.actionErr = nil
		m.actionFailed = ""
	case "shift+right":
		return m.dropCard(1)
	case "shift+left":
		return m.dropCard(-1)
	case "g":
		if d, ok := m.board.Selected(); ok {
			if action, ok := domain.AgentTrigger(d.Phase, d.RunStatus); ok {
				m.collection.MarkRunning(d.ID)
				m.board = m.board.UpdateColumns(m.collection.ByPhase())
				return m, m.runAction(action, d.ID)
			}
		}
	case "enter":
		if d, ok := m.board.Selected(); ok {
			m.handle = resource.NewHandle(m.client, d.ID)
			m.view = viewDetail
			return m, m.refreshDelivery()
		}
	}
	return m, nil
}

// dropCard maps a one-column card move to its gate action, when legal.
func (m AppModel) dropCard(direction int) (tea.Model, tea.Cmd) {
	d, ok := m.board.Selected()
	if !ok {
		return m, nil
	}
	idx := domain.PhaseIndex(d.Phase) + direction
	if idx < 0 || idx >= len(domain.Phases) {
		return m, nil
	}
	action, ok := domain.EvaluateDrop(d.Phase, d.RunStatus, domain.Phases[idx])
	if !ok {
		return m, nil
	}
	switch action {
	case domain.DropApprove:
		m.confirmAction = "approve"
		m.confirmTarget = d.ID
		m.confirmLabel = fmt.Sprintf("Approve #%d into %s?", d.Seq, domain.Phases[idx])
	case domain.DropReject:
		m.rejecting = true
		m.rejectTarget = d.ID
		m.rejectInput.Focus()
	}
	return m, nil
}

func (m AppModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.handle == nil {
		m.view = viewBoard
		return m, nil
	}
	d, loaded := m.handle.Delivery()
	switch msg.String() {
	case "esc":
		m.view = viewBoard
		m.handle = nil
		return m, m.refreshCollection()
	case "d":
		m.handle.ClearActionError()
		m.actionErr = nil
		m.actionFailed = ""
	case "a":
		if loaded && domain.CanApproveReject(d.Phase, d.RunStatus) {
			m.confirmAction = "approve"
			m.confirmTarget = d.ID
			m.confirmLabel = fmt.Sprintf("Approve #%d?", d.Seq)
		}
	case "j":
		if loaded && domain.CanApproveReject(d.Phase, d.RunStatus) {
			m.rejecting = true
			m.rejectTarget = d.ID
			m.rejectInput.Focus()
		}
	case "x":
		if loaded && d.Running() {
			m.confirmAction = "cancel"
			m.confirmTarget = d.ID
			m.confirmLabel = fmt.Sprintf("Cancel the running phase of #%d?", d.Seq)
		}
	case "r":
		if loaded && d.RunStatus == domain.StatusFailed {
			m.confirmAction = "retry"
			m.confirmTarget = d.ID
			m.confirmLabel = fmt.Sprintf("Retry the %s phase of #%d?", d.Phase, d.Seq)
		}
	case "g":
		if loaded {
			if action, ok := domain.AgentTrigger(d.Phase, d.RunStatus); ok {
				handle := m.handle
				return m, m.handleAction(action, func(ctx context.Context) error {
					return handle.Trigger(ctx, action)
				})
			}
		}
	case "t":
		if !loaded {
			return m, nil
		}
		m.view = viewTranscript
		if d.Running() {
			m.transcript = NewLiveTranscript()
			return m, m.openStream(d.ID)
		}
		if len(d.Runs) > 0 {
			latest := d.Runs[len(d.Runs)-1]
			return m, m.loadLog(d.ID, latest.ID)
		}
		m.transcript = TranscriptModel{}
	}
	return m, nil
}

func (m AppModel) updateTranscript(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeStream()
		m.view = viewDetail
	case "down":
		m.transcript = m.transcript.ScrollDown()
	case "up":
		m.transcript = m.transcript.ScrollUp()
	case "g":
		m.transcript = m.transcript.ScrollTop()
	case "G":
		m.transcript = m.transcript.ScrollBottom()
	}
	return m, nil
}

// View renders the full TUI.
func (m AppModel) View() string {
	header := " shipdeck\n"
	separator := strings.Repeat("─", 60) + "\n"

	if m.loading && m.view == viewBoard {
		return header + separator + " Loading deliveries...\n"
	}

	var body, footer string
	switch m.view {
	case viewBoard:
		body = m.renderBoardBody()
		footer = " ↑/↓/←/→: navigate   enter: open   shift+←/→: move card   g: run agent   ctrl+r: refresh   q: quit\n"
	case viewDetail:
		body = m.renderDetailBody()
		footer = " esc: back   q: quit\n"
		if m.handle != nil {
			if d, ok := m.handle.Delivery(); ok {
				footer = detailFooter(d)
			}
		}
	case viewTranscript:
		body = m.renderTranscriptBody()
		footer = " ↑/↓: scroll   g/G: top/follow   esc: back   q: quit\n"
	}

	if m.confirmAction != "" {
		footer = fmt.Sprintf(" %s [y/N] \n", m.confirmLabel)
	}
	if m.rejecting {
		footer = " Reject reason: " + m.rejectInput.View() + "   (enter: submit, esc: cancel)\n"
	}

	return header + separator + body + separator + footer
}

func (m AppModel) renderBoardBody() string {
	var banner string
	if err := m.collection.Err(); err != nil {
		banner = errorStyle.Render(fmt.Sprintf(" Error: %v (showing last known state)", err)) + "\n"
	}
	if m.actionErr != nil {
		banner += errorStyle.Render(fmt.Sprintf(" %s failed: %v", m.actionFailed, m.actionErr)) +
			dimStyle.Render("  (d: dismiss)") + "\n"
	}
	width := m.width
	if width == 0 {
		width = 100
	}
	return banner + m.board.View(width) + "\n"
}

func (m AppModel) renderDetailBody() string {
	if m.handle == nil {
		return " No delivery selected.\n"
	}
	d, ok := m.handle.Delivery()
	if !ok {
		if err := m.handle.Err(); err != nil {
			return errorStyle.Render(fmt.Sprintf(" Error: %v", err)) + "\n"
		}
		return " Loading delivery...\n"
	}
	return renderDetail(d, m.handle.ActionErr())
}

func (m AppModel) renderTranscriptBody() string {
	height := m.height - 4
	if height < 10 {
		height = 10
	}
	return m.transcript.View(height) + "\n"
}

// Run starts the Bubbletea program. Exits on error.
func Run(client *api.Client, pollInterval time.Duration) {
	p := tea.NewProgram(NewAppModel(client, pollInterval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "shipdeck error: %v\n", err)
		os.Exit(1)
	}
}
