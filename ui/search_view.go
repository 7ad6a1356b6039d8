package ui

import (
	"fmt"

	"llm-app-lab/search"
	"llm-app-lab/utils"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const searchResultLimit = 50

// SearchView is the full-text search tab over persisted conversations.
type SearchView struct {
	app *App

	searchEntry  *widget.Entry
	searchButton *widget.Button
	resultsList  *widget.List
	statusLabel  *widget.Label
	results      []*search.Hit
}

// NewSearchView creates a new search view
func NewSearchView(app *App) *SearchView {
	return &SearchView{app: app}
}

// Build builds the search view UI
func (sv *SearchView) Build() fyne.CanvasObject {
	sv.searchEntry = widget.NewEntry()
	sv.searchEntry.SetPlaceHolder("搜索对话内容...")
	sv.searchEntry.OnSubmitted = func(string) { sv.performSearch() }

	sv.searchButton = widget.NewButton("搜索", sv.performSearch)
	sv.searchButton.Importance = widget.HighImportance

	sv.statusLabel = widget.NewLabel("")

	sv.resultsList = widget.NewList(
		func() int { return len(sv.results) },
		func() fyne.CanvasObject {
			title := widget.NewLabel("")
			title.TextStyle = fyne.TextStyle{Bold: true}
			snippet := widget.NewLabel("")
			snippet.Wrapping = fyne.TextWrapBreak
			return container.NewVBox(title, snippet)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id >= len(sv.results) {
				return
			}
			hit := sv.results[id]
			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(
				fmt.Sprintf("%s · %s · %s", hit.ConversationID, hit.Role, hit.Timestamp))
			box.Objects[1].(*widget.Label).SetText(hit.Snippet)
		},
	)

	searchBar := container.NewBorder(nil, nil, nil, sv.searchButton, sv.searchEntry)

	return container.NewBorder(
		container.NewVBox(searchBar, sv.statusLabel),
		nil, nil, nil,
		sv.resultsList,
	)
}

func (sv *SearchView) performSearch() {
	query := sv.searchEntry.Text
	if query == "" {
		return
	}

	sv.searchButton.Disable()
	sv.statusLabel.SetText("搜索中...")

	utils.SafeGo(sv.app.logger, "search", func() {
		hits, err := sv.app.index.Search(query, searchResultLimit)
		fyne.Do(func() {
			defer sv.searchButton.Enable()
			if err != nil {
				sv.app.logger.Error("Search failed: %v", err)
				sv.statusLabel.SetText("搜索失败: " + err.Error())
				return
			}
			sv.results = hits
			sv.statusLabel.SetText(fmt.Sprintf("共 %d 条结果", len(hits)))
			sv.resultsList.Refresh()
		})
	})
}
