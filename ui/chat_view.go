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

// ChatView is the single-turn chat tab with conversation memory.
type ChatView struct {
	app *App

	output       *widget.RichText
	outputScroll *container.Scroll
	transcript   strings.Builder

	entry      *widget.Entry
	tempSelect *widget.Select
	sendButton *widget.Button
	stopButton *widget.Button

	conversationSelect *widget.Select
	attachments        []session.Attachment
	attachmentsLabel   *widget.Label

	stop *llm.StopSignal
}

// NewChatView creates a new chat view
func NewChatView(app *App) *ChatView {
	return &ChatView{app: app}
}

// Build builds the chat view UI
func (cv *ChatView) Build() fyne.CanvasObject {
	cv.output = widget.NewRichText()
	cv.output.Wrapping = fyne.TextWrapBreak
	cv.outputScroll = container.NewScroll(cv.output)

	cv.entry = widget.NewEntry()
	cv.entry.SetPlaceHolder("请输入您的问题...")
	cv.entry.OnSubmitted = func(string) { cv.send() }

	cv.tempSelect = newTemperatureSelect()

	cv.sendButton = widget.NewButton("发送", cv.send)
	cv.sendButton.Importance = widget.HighImportance
	cv.stopButton = widget.NewButton("停止", func() {
		if cv.stop != nil {
			cv.stop.Stop()
		}
	})
	cv.stopButton.Disable()

	cv.attachmentsLabel = widget.NewLabel("")
	attachButton := widget.NewButton("添加附件", func() {
		pickAttachment(cv.app, func(att session.Attachment) {
			cv.attachments = append(cv.attachments, att)
			cv.refreshAttachmentsLabel()
		})
	})
	clearButton := widget.NewButton("清除附件", func() {
		cv.attachments = nil
		cv.refreshAttachmentsLabel()
	})

	cv.conversationSelect = widget.NewSelect(nil, func(id string) {
		if id == "" || id == cv.app.store.CurrentID() {
			return
		}
		if cv.app.store.SetCurrent(id) {
			cv.loadConversation(id)
		}
	})
	cv.refreshConversationList()

	newButton := widget.NewButton("新建对话", func() {
		id := cv.app.store.StartNew()
		cv.refreshConversationList()
		cv.resetTranscript()
		cv.app.logger.Info("Started conversation %s", id)
	})
	exportButton := widget.NewButton("导出 Markdown", cv.exportConversation)
	deleteButton := widget.NewButton("删除对话", cv.deleteConversation)

	topBar := container.NewBorder(nil, nil,
		widget.NewLabel("对话:"),
		container.NewHBox(newButton, exportButton, deleteButton),
		cv.conversationSelect,
	)

	inputRow := container.NewBorder(nil, nil,
		cv.tempSelect,
		container.NewHBox(attachButton, clearButton, cv.sendButton, cv.stopButton),
		cv.entry,
	)

	return container.NewBorder(
		topBar,
		container.NewVBox(cv.attachmentsLabel, inputRow),
		nil, nil,
		cv.outputScroll,
	)
}

// Fragment implements session.Sink.
func (cv *ChatView) Fragment(text string) { cv.appendOutput(text) }

// Notice implements session.Sink.
func (cv *ChatView) Notice(text string) { cv.appendOutput(text) }

func (cv *ChatView) send() {
	question := cv.entry.Text
	if question == "" && len(cv.attachments) == 0 {
		dialog.ShowInformation("提示", "请输入问题或添加附件。", cv.app.window)
		return
	}

	level := levelFromChoice(cv.tempSelect.Selected)
	attachments := cv.attachments
	cv.attachments = nil
	cv.refreshAttachmentsLabel()
	cv.entry.SetText("")

	cv.sendButton.Disable()
	cv.stopButton.Enable()
	cv.stop = llm.NewStopSignal()
	stop := cv.stop

	cv.appendOutput(fmt.Sprintf("\n\n> 你: %s\n\n助手: ", question))
	cv.app.SetStatus("正在生成回答...")

	utils.SafeGo(cv.app.logger, "chat send", func() {
		outcome, err := cv.app.chatSession.Run(context.Background(), question, attachments, level, stop, cv)
		if err != nil {
			cv.app.logger.Error("Chat turn failed: %v", err)
		}
		if outcome == session.OutcomeBlocked && err == nil {
			cv.appendOutput(session.BlockedReply)
		}

		cv.app.SetStatus(statusForOutcome(outcome, "回答完成"))
		fyne.Do(func() {
			cv.sendButton.Enable()
			cv.stopButton.Disable()
			cv.refreshConversationList()
		})
	})
}

func statusForOutcome(outcome session.Outcome, completed string) string {
	switch outcome {
	case session.OutcomeBlocked:
		return "内容被拦截"
	case session.OutcomeCancelled:
		return "已终止"
	default:
		return completed
	}
}

func (cv *ChatView) appendOutput(text string) {
	cv.transcript.WriteString(text)
	content := cv.transcript.String()
	fyne.Do(func() {
		cv.output.ParseMarkdown(content)
		cv.outputScroll.ScrollToBottom()
	})
}

func (cv *ChatView) resetTranscript() {
	cv.transcript.Reset()
	fyne.Do(func() {
		cv.output.ParseMarkdown("")
	})
}

// loadConversation renders an existing conversation's history into the
// transcript.
func (cv *ChatView) loadConversation(id string) {
	cv.transcript.Reset()
	for _, msg := range cv.app.store.History(id) {
		if msg.Role == llm.RoleUser {
			cv.transcript.WriteString(fmt.Sprintf("\n\n> 你: %s\n", msg.Content))
		} else {
			cv.transcript.WriteString(fmt.Sprintf("\n助手: %s\n", msg.Content))
		}
	}
	cv.appendOutput("")
}

func (cv *ChatView) refreshConversationList() {
	ids := cv.app.store.List()
	cv.conversationSelect.Options = ids
	if current := cv.app.store.CurrentID(); current != "" {
		cv.conversationSelect.Selected = current
	}
	cv.conversationSelect.Refresh()
}

func (cv *ChatView) refreshAttachmentsLabel() {
	if len(cv.attachments) == 0 {
		cv.attachmentsLabel.SetText("")
		return
	}
	names := make([]string, 0, len(cv.attachments))
	for _, att := range cv.attachments {
		names = append(names, att.Filename)
	}
	cv.attachmentsLabel.SetText("附件: " + strings.Join(names, ", "))
}

func (cv *ChatView) exportConversation() {
	id := cv.app.store.CurrentID()
	if id == "" {
		dialog.ShowInformation("提示", "当前没有对话可导出。", cv.app.window)
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, cv.app.window)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		if err := cv.app.store.ExportMarkdown(id, path); err != nil {
			cv.app.logger.Error("Failed to export conversation %s: %v", id, err)
			dialog.ShowError(err, cv.app.window)
			return
		}
		dialog.ShowInformation("成功", "对话已导出到: "+path, cv.app.window)
	}, cv.app.window)
	fd.SetFileName(id + ".md")
	fd.Show()
}

func (cv *ChatView) deleteConversation() {
	id := cv.app.store.CurrentID()
	if id == "" {
		return
	}
	dialog.ShowConfirm("删除对话", "确定要删除对话 "+id+" 吗？", func(confirmed bool) {
		if !confirmed {
			return
		}
		if !cv.app.store.Delete(id) {
			cv.app.logger.Warn("Failed to delete conversation %s", id)
			return
		}
		cv.refreshConversationList()
		cv.resetTranscript()
	}, cv.app.window)
}
