package ui

import (
	"path/filepath"

	"llm-app-lab/llm"
	"llm-app-lab/session"
	"llm-app-lab/utils"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// temperatureChoices are the certainty options shown to the user, mapped to
// levels below.
var temperatureChoices = []string{"高 (严谨)", "中 (平衡)", "低 (发散)"}

func levelFromChoice(choice string) llm.TemperatureLevel {
	switch choice {
	case "高 (严谨)":
		return llm.LevelLow
	case "低 (发散)":
		return llm.LevelHigh
	default:
		return llm.LevelMedium
	}
}

// newTemperatureSelect builds the certainty selector with the default choice
// applied.
func newTemperatureSelect() *widget.Select {
	sel := widget.NewSelect(temperatureChoices, nil)
	sel.SetSelected("中 (平衡)")
	return sel
}

// pickAttachment opens a file dialog, reads the chosen file as text and
// hands the attachment to the view.
func pickAttachment(a *App, onAdd func(session.Attachment)) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		content, err := utils.ReadFileContent(path)
		if err != nil {
			a.logger.Error("Failed to read attachment %s: %v", path, err)
			dialog.ShowError(err, a.window)
			return
		}
		onAdd(session.Attachment{
			Filename: filepath.Base(path),
			Path:     path,
			Content:  content,
		})
	}, a.window)
	fd.Show()
}
