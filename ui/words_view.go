package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// WordsView manages the sensitive-word list: add, remove, import, export.
type WordsView struct {
	app *App

	wordsList *widget.List
	addEntry  *widget.Entry
	words     []string
	selected  int
}

// NewWordsView creates a new sensitive-word management view
func NewWordsView(app *App) *WordsView {
	return &WordsView{app: app, selected: -1}
}

// Build builds the word management UI
func (wv *WordsView) Build() fyne.CanvasObject {
	wv.words = wv.app.filter.Words()

	wv.wordsList = widget.NewList(
		func() int { return len(wv.words) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id < len(wv.words) {
				item.(*widget.Label).SetText(wv.words[id])
			}
		},
	)
	wv.wordsList.OnSelected = func(id widget.ListItemID) { wv.selected = id }
	wv.wordsList.OnUnselected = func(widget.ListItemID) { wv.selected = -1 }

	wv.addEntry = widget.NewEntry()
	wv.addEntry.SetPlaceHolder("输入要添加的敏感词...")
	wv.addEntry.OnSubmitted = func(string) { wv.addWord() }

	addButton := widget.NewButton("添加", wv.addWord)
	addButton.Importance = widget.HighImportance

	removeButton := widget.NewButton("删除选中", func() {
		if wv.selected < 0 || wv.selected >= len(wv.words) {
			dialog.ShowInformation("提示", "请先选择要删除的敏感词。", wv.app.window)
			return
		}
		word := wv.words[wv.selected]
		if wv.app.filter.RemoveWord(word) {
			wv.app.logger.Info("Removed sensitive word %q", word)
		}
		wv.refreshWords()
	})

	importButton := widget.NewButton("导入", wv.importWords)
	exportButton := widget.NewButton("导出", wv.exportWords)

	inputRow := container.NewBorder(nil, nil, nil,
		container.NewHBox(addButton, removeButton, importButton, exportButton),
		wv.addEntry,
	)

	return container.NewBorder(inputRow, nil, nil, nil, wv.wordsList)
}

func (wv *WordsView) addWord() {
	word := wv.addEntry.Text
	if word == "" {
		return
	}
	if !wv.app.filter.AddWord(word) {
		dialog.ShowInformation("提示", "该敏感词已存在。", wv.app.window)
		return
	}
	wv.app.logger.Info("Added sensitive word %q", word)
	wv.addEntry.SetText("")
	wv.refreshWords()
}

func (wv *WordsView) importWords() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, wv.app.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		added, err := wv.app.filter.ImportFrom(path)
		if err != nil {
			wv.app.logger.Error("Failed to import words from %s: %v", path, err)
			dialog.ShowError(err, wv.app.window)
			return
		}
		wv.refreshWords()
		dialog.ShowInformation("成功", fmt.Sprintf("已导入 %d 个敏感词。", added), wv.app.window)
	}, wv.app.window)
	fd.Show()
}

func (wv *WordsView) exportWords() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, wv.app.window)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		if err := wv.app.filter.ExportTo(path); err != nil {
			wv.app.logger.Error("Failed to export words to %s: %v", path, err)
			dialog.ShowError(err, wv.app.window)
			return
		}
		dialog.ShowInformation("成功", "敏感词已导出到: "+path, wv.app.window)
	}, wv.app.window)
	fd.SetFileName("sensitive_words.json")
	fd.Show()
}

func (wv *WordsView) refreshWords() {
	wv.words = wv.app.filter.Words()
	wv.selected = -1
	wv.wordsList.UnselectAll()
	wv.wordsList.Refresh()
}
