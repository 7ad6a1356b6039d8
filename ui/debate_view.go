package ui

import (
	"context"
	"fmt"
	"strings"

	"llm-app-lab/llm"
	"llm-app-lab/session"
	"llm-app-lab/utils"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// DebateView is the two-agent debate tab.
type DebateView struct {
	app *App

	output       *widget.RichText
	outputScroll *container.Scroll
	transcript   strings.Builder

	topicEntry  *widget.Entry
	tempSelect  *widget.Select
	startButton *widget.Button
	stopButton  *widget.Button
	saveButton  *widget.Button

	attachments      []session.Attachment
	attachmentsLabel *widget.Label

	stop *llm.StopSignal
}

// NewDebateView creates a new debate view
func NewDebateView(app *App) *DebateView {
	return &DebateView{app: app}
}

// Build builds the debate view UI
func (dv *DebateView) Build() fyne.CanvasObject {
	dv.output = widget.NewRichText()
	dv.output.Wrapping = fyne.TextWrapBreak
	dv.outputScroll = container.NewScroll(dv.output)

	dv.topicEntry = widget.NewEntry()
	dv.topicEntry.SetPlaceHolder("请输入辩论话题...")
	dv.topicEntry.OnSubmitted = func(string) { dv.start() }

	dv.tempSelect = newTemperatureSelect()

	dv.startButton = widget.NewButton("开始辩论", dv.start)
	dv.startButton.Importance = widget.HighImportance
	dv.stopButton = widget.NewButton("停止", func() {
		if dv.stop != nil {
			dv.stop.Stop()
		}
	})
	dv.stopButton.Disable()
	dv.saveButton = widget.NewButton("保存辩论", dv.saveDebate)

	dv.attachmentsLabel = widget.NewLabel("")
	attachButton := widget.NewButton("添加附件", func() {
		pickAttachment(dv.app, func(att session.Attachment) {
			dv.attachments = append(dv.attachments, att)
			dv.refreshAttachmentsLabel()
		})
	})
	clearButton := widget.NewButton("清除附件", func() {
		dv.attachments = nil
		dv.refreshAttachmentsLabel()
	})

	inputRow := container.NewBorder(nil, nil,
		dv.tempSelect,
		container.NewHBox(attachButton, clearButton, dv.startButton, dv.stopButton, dv.saveButton),
		dv.topicEntry,
	)

	return container.NewBorder(
		nil,
		container.NewVBox(dv.attachmentsLabel, inputRow),
		nil, nil,
		dv.outputScroll,
	)
}

// Fragment implements session.Sink.
func (dv *DebateView) Fragment(text string) { dv.appendOutput(text) }

// Notice implements session.Sink.
func (dv *DebateView) Notice(text string) { dv.appendOutput(text) }

// SpeakerStart implements session.DebateSink.
func (dv *DebateView) SpeakerStart(round int, speaker string) {
	stance := "正方"
	if speaker == "B" {
		stance = "反方"
	}
	dv.appendOutput(fmt.Sprintf("\n\n--- 第 %d 轮 · 辩手%s (%s) ---\n", round, speaker, stance))
	dv.app.SetStatus(fmt.Sprintf("第 %d 轮，辩手%s发言中...", round, speaker))
}

func (dv *DebateView) start() {
	topic := dv.topicEntry.Text
	if topic == "" && len(dv.attachments) == 0 {
		dialog.ShowInformation("提示", "请输入辩论话题或添加附件。", dv.app.window)
		return
	}

	level := levelFromChoice(dv.tempSelect.Selected)
	attachments := dv.attachments
	dv.attachments = nil
	dv.refreshAttachmentsLabel()

	dv.startButton.Disable()
	dv.stopButton.Enable()
	dv.saveButton.Disable()
	dv.stop = llm.NewStopSignal()
	stop := dv.stop

	dv.transcript.Reset()
	dv.appendOutput(fmt.Sprintf("辩论话题: %s\n", topic))
	dv.app.SetStatus("辩论进行中...")

	utils.SafeGo(dv.app.logger, "debate run", func() {
		outcome, err := dv.app.debateSession.Run(context.Background(), topic, attachments, level, stop, dv)
		if err != nil {
			dv.app.logger.Error("Debate failed: %v", err)
		}
		if outcome == session.OutcomeBlocked && err == nil {
			dv.appendOutput("\n话题包含敏感词，无法开始辩论。\n")
		}

		dv.app.SetStatus(statusForOutcome(outcome, "辩论结束"))
		fyne.Do(func() {
			dv.startButton.Enable()
			dv.stopButton.Disable()
			dv.saveButton.Enable()
		})
	})
}

// saveDebate writes the visible transcript verbatim to a user-chosen file.
func (dv *DebateView) saveDebate() {
	content := dv.transcript.String()
	if strings.TrimSpace(content) == "" {
		dialog.ShowInformation("提示", "没有可保存的内容。", dv.app.window)
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, dv.app.window)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		if err := utils.WriteFileContent(path, content); err != nil {
			dv.app.logger.Error("Failed to save debate to %s: %v", path, err)
			dialog.ShowError(err, dv.app.window)
			return
		}
		dialog.ShowInformation("成功", "辩论内容已保存到: "+path, dv.app.window)
	}, dv.app.window)
	fd.SetFileName("debate.md")
	fd.Show()
}

func (dv *DebateView) appendOutput(text string) {
	dv.transcript.WriteString(text)
	content := dv.transcript.String()
	fyne.Do(func() {
		dv.output.ParseMarkdown(content)
		dv.outputScroll.ScrollToBottom()
	})
}

func (dv *DebateView) refreshAttachmentsLabel() {
	if len(dv.attachments) == 0 {
		dv.attachmentsLabel.SetText("")
		return
	}
	names := make([]string, 0, len(dv.attachments))
	for _, att := range dv.attachments {
		names = append(names, att.Filename)
	}
	dv.attachmentsLabel.SetText("附件: " + strings.Join(names, ", "))
}
