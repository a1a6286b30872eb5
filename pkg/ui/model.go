package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/cardtree/internal/datasource"
	"github.com/vanderheijden86/cardtree/pkg/config"
	"github.com/vanderheijden86/cardtree/pkg/debug"
	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/selection"
	"github.com/vanderheijden86/cardtree/pkg/store"
	"github.com/vanderheijden86/cardtree/pkg/tree"
	"github.com/vanderheijden86/cardtree/pkg/watcher"
	"github.com/vanderheijden86/cardtree/pkg/window"
)

const (
	defaultWidth  = 120
	defaultHeight = 40
	reloadTimeout = 30 * time.Second
)

// FileChangedMsg is sent when a watched data file changes on disk.
type FileChangedMsg struct {
	Paths []string
}

// reloadedMsg carries a freshly loaded store, or the error that stopped it.
type reloadedMsg struct {
	store store.Store
	err   error
}

// ReloadFunc rebuilds the store from its sources.
type ReloadFunc func(ctx context.Context) (store.Store, error)

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		paths, ok := <-w.Changed()
		if !ok {
			return nil
		}
		return FileChangedMsg{Paths: paths}
	}
}

func reloadCmd(fn ReloadFunc) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		st, err := fn(ctx)
		return reloadedMsg{store: st, err: err}
	}
}

// Options configure a board Model.
type Options struct {
	Config  config.Config
	Store   store.Store
	Watcher *watcher.Watcher // optional; re-armed after every reload
	Reload  ReloadFunc       // required when Watcher is set
	Title   string
}

// Model is the Bubble Tea model for the card board.
type Model struct {
	opts  Options
	theme Theme
	store store.Store
	ctrl  *window.Controller
	eng   *selection.Engine
	surf  *surface

	cursor    int
	cursorKey mountKey

	width  int
	height int

	showDetail    bool
	showHelp      bool
	helpCtx       Context
	detail        viewport.Model
	detailID      model.ID
	detailLoading bool
	mdRenderer    *glamour.TermRenderer
	mdWidth       int

	jumping   bool
	jumpInput textinput.Model

	statusMsg     string
	statusIsError bool

	initCmd tea.Cmd
}

// NewModel builds the board over opts.Store. The model starts at a default
// size so it renders before the first WindowSizeMsg arrives.
func NewModel(opts Options) (Model, error) {
	if opts.Store == nil {
		return Model{}, fmt.Errorf("ui: no store")
	}
	wcfg, err := opts.Config.WindowController()
	if err != nil {
		return Model{}, fmt.Errorf("ui: window config: %w", err)
	}
	anchor, err := opts.Config.AnchorPolicy()
	if err != nil {
		return Model{}, fmt.Errorf("ui: selection config: %w", err)
	}

	ctrl := window.New(opts.Store, wcfg)
	m := Model{
		opts:       opts,
		theme:      DefaultTheme(lipgloss.NewRenderer(os.Stdout)),
		store:      opts.Store,
		ctrl:       ctrl,
		eng:        selection.New(opts.Store, anchor),
		width:      defaultWidth,
		height:     defaultHeight,
		showDetail: opts.Config.DetailEnabled(),
		detail:     viewport.New(defaultWidth/2, defaultHeight-4),
	}

	ti := textinput.New()
	ti.Prompt = "jump to id: "
	ti.CharLimit = 256
	m.jumpInput = ti

	m.surf = newSurface(ctrl, opts.Config.VisibilityOptions(),
		opts.Config.Layout.CardHeight, opts.Config.Layout.ParentHeight, m.bodyHeight())
	m.layoutPanes()
	m.surf.settle()
	m.setCursor(0)
	m.initCmd = m.syncDetail()
	return m, nil
}

// Init starts the file watch loop when a watcher is configured.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	if m.initCmd != nil {
		cmds = append(cmds, m.initCmd)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layoutPanes()
		m.surf.resize(m.bodyHeight())
		m.surf.settle()
		m.surf.reveal(m.cursor)
		m.detailID = ""
		cmds = append(cmds, m.syncDetail())

	case tea.KeyMsg:
		var cmd tea.Cmd
		switch {
		case m.showHelp:
			m.showHelp = false
		case m.jumping:
			m, cmd = m.handleJumpKeys(msg)
		default:
			m, cmd = m.handleKeys(msg)
		}
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m, cmd = m.handleMouse(msg)
		cmds = append(cmds, cmd)

	case leafFetchedMsg:
		m.applyLeafFetched(msg)

	case FileChangedMsg:
		if m.opts.Reload == nil {
			if m.opts.Watcher != nil {
				cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
			}
			break
		}
		debug.Log("reload: change detected in %s", strings.Join(msg.Paths, ", "))
		m.setStatus("reloading…", false)
		cmds = append(cmds, reloadCmd(m.opts.Reload))

	case reloadedMsg:
		cmds = append(cmds, m.applyReload(msg))
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
		}
	}

	return m, tea.Batch(cmds...)
}

// applyReload swaps the store while keeping open state, selection of
// surviving leaves and the cursor.
func (m *Model) applyReload(msg reloadedMsg) tea.Cmd {
	if msg.err != nil {
		m.setStatus("reload failed: "+msg.err.Error(), true)
		return nil
	}
	debug.Section("reload")
	if problems := store.Validate(msg.store); len(problems) > 0 {
		debug.Log("reload: %d validation problems, first: %s", len(problems), problems[0])
	}
	diff := datasource.DiffNodes(m.store.AllNodes(), msg.store.AllNodes())
	debug.LogIf(diff.IsEmpty(), "reload: node set unchanged")
	m.store = msg.store
	m.ctrl.SetSource(msg.store)
	m.eng.Retain(msg.store)
	m.afterReproject()
	m.setStatus("reloaded: "+diff.Summary(), false)
	m.detailID = ""
	return m.syncDetail()
}

func (m Model) View() string {
	if m.showHelp {
		return lipgloss.NewStyle().Width(m.width).Height(m.height).MaxHeight(m.height).
			Render(RenderContextHelp(m.helpCtx, m.theme, m.width))
	}

	bodyH := m.bodyHeight()
	body := m.renderBoard(m.boardWidth(), bodyH)
	if m.detailVisible() {
		pane := PanelStyle.
			Width(m.detail.Width).
			Height(bodyH - 2).
			Render(m.detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, pane)
	}

	finalStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)
	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter()))
}

func (m Model) bodyHeight() int {
	return max(1, m.height-2)
}

func (m *Model) layoutPanes() {
	m.detail.Width = max(10, m.detailWidth()-2)
	m.detail.Height = max(1, m.bodyHeight()-2)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

// afterReproject refreshes geometry after the flat sequence changed and
// keeps the cursor on the same item where it still exists.
func (m *Model) afterReproject() {
	m.surf.relayout()
	idx := -1
	for i, it := range m.ctrl.Flat() {
		if it.ID == m.cursorKey.id && it.ParentID == m.cursorKey.parent {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = min(m.cursor, m.ctrl.Len()-1)
	}
	m.surf.settle()
	m.setCursor(idx)
}

// setCursor focuses flat index i and scrolls it into view.
func (m *Model) setCursor(i int) {
	n := m.ctrl.Len()
	if n == 0 {
		m.cursor = 0
		m.cursorKey = mountKey{}
		return
	}
	i = max(0, min(i, n-1))
	m.cursor = i
	it := m.ctrl.Flat()[i]
	m.cursorKey = mountKey{parent: it.ParentID, id: it.ID}
	m.surf.reveal(i)
}

func (m Model) focused() (tree.FlatItem, bool) {
	flat := m.ctrl.Flat()
	if m.cursor < 0 || m.cursor >= len(flat) {
		return tree.FlatItem{}, false
	}
	return flat[m.cursor], true
}

// Controller exposes the window controller, for embedding and tests.
func (m Model) Controller() *window.Controller { return m.ctrl }

// Selection exposes the selection engine.
func (m Model) Selection() *selection.Engine { return m.eng }

// Cursor returns the focused flat index.
func (m Model) Cursor() int { return m.cursor }

// StatusMessage returns the current footer status text.
func (m Model) StatusMessage() string { return m.statusMsg }

// Close releases the visibility observer.
func (m Model) Close() {
	m.surf.close()
}
