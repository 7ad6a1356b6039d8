// Package ui builds the desktop interface: one tab per interaction mode plus
// search and sensitive-word management, over a shared status bar. All LLM
// work runs on background goroutines; widget updates go through fyne.Do.
package ui

import (
	"llm-app-lab/filter"
	"llm-app-lab/memory"
	"llm-app-lab/search"
	"llm-app-lab/session"
	"llm-app-lab/utils"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// App represents the main application
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	logger  *utils.Logger

	store  *memory.Store
	filter *filter.Filter
	index  *search.Index

	chatSession    *session.ChatSession
	debateSession  *session.DebateSession
	codeGenSession *session.CodeGenSession

	statusLabel *widget.Label

	chatView    *ChatView
	debateView  *DebateView
	codeGenView *CodeGenView
	searchView  *SearchView
	wordsView   *WordsView
}

// NewApp creates the application window and wires the views to the sessions.
func NewApp(store *memory.Store, f *filter.Filter, index *search.Index,
	chat *session.ChatSession, debate *session.DebateSession, codeGen *session.CodeGenSession,
	logger *utils.Logger) *App {

	fyneApp := app.NewWithID("llm-app-lab")
	window := fyneApp.NewWindow("LLM 应用实验室")
	window.Resize(fyne.NewSize(900, 700))

	application := &App{
		fyneApp:        fyneApp,
		window:         window,
		logger:         logger,
		store:          store,
		filter:         f,
		index:          index,
		chatSession:    chat,
		debateSession:  debate,
		codeGenSession: codeGen,
	}

	application.buildUI()
	return application
}

// buildUI assembles the tab container and status bar.
func (a *App) buildUI() {
	a.statusLabel = widget.NewLabel("准备就绪")

	a.chatView = NewChatView(a)
	a.debateView = NewDebateView(a)
	a.codeGenView = NewCodeGenView(a)
	a.searchView = NewSearchView(a)
	a.wordsView = NewWordsView(a)

	tabs := container.NewAppTabs(
		container.NewTabItem("智能问答", a.chatView.Build()),
		container.NewTabItem("智能体辩论", a.debateView.Build()),
		container.NewTabItem("代码生成", a.codeGenView.Build()),
		container.NewTabItem("搜索", a.searchView.Build()),
		container.NewTabItem("敏感词管理", a.wordsView.Build()),
	)
	tabs.SetTabLocation(container.TabLocationTop)

	a.window.SetContent(container.NewBorder(nil, a.statusLabel, nil, nil, tabs))
}

// SetStatus updates the status bar. Safe to call from any goroutine.
func (a *App) SetStatus(text string) {
	fyne.Do(func() {
		a.statusLabel.SetText(text)
	})
}

// Run shows the window and blocks until the application exits.
func (a *App) Run() {
	a.window.ShowAndRun()
}
