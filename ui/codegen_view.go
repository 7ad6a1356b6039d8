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

var codeGenLanguages = []string{"Python", "JavaScript", "Java", "C++", "SQL"}

// CodeGenView is the prompt-engineered code generation tab.
type CodeGenView struct {
	app *App

	output       *widget.RichText
	outputScroll *container.Scroll
	transcript   strings.Builder

	entry      *widget.Entry
	tempSelect *widget.Select

	langSelect     *widget.Select
	libsEntry      *widget.Entry
	commentsCheck  *widget.Check
	docstringCheck *widget.Check
	explainCheck   *widget.Check

	generateButton *widget.Button
	stopButton     *widget.Button
	saveButton     *widget.Button

	attachments      []session.Attachment
	attachmentsLabel *widget.Label

	stop *llm.StopSignal
}

// NewCodeGenView creates a new code generation view
func NewCodeGenView(app *App) *CodeGenView {
	return &CodeGenView{app: app}
}

// Build builds the code generation view UI
func (gv *CodeGenView) Build() fyne.CanvasObject {
	gv.output = widget.NewRichText()
	gv.output.Wrapping = fyne.TextWrapBreak
	gv.outputScroll = container.NewScroll(gv.output)

	gv.entry = widget.NewEntry()
	gv.entry.SetPlaceHolder("请输入您的代码生成需求...")
	gv.entry.OnSubmitted = func(string) { gv.generate() }

	gv.tempSelect = newTemperatureSelect()

	gv.langSelect = widget.NewSelect(codeGenLanguages, nil)
	gv.langSelect.SetSelected("Python")
	gv.libsEntry = widget.NewEntry()
	gv.libsEntry.SetPlaceHolder("指定库或框架 (可选)")
	gv.commentsCheck = widget.NewCheck("添加代码注释", nil)
	gv.docstringCheck = widget.NewCheck("编写文档字符串", nil)
	gv.explainCheck = widget.NewCheck("先解释思路再写代码", nil)

	optionsRow := container.NewHBox(
		widget.NewLabel("语言:"),
		gv.langSelect,
		gv.commentsCheck,
		gv.docstringCheck,
		gv.explainCheck,
	)

	gv.generateButton = widget.NewButton("生成代码", gv.generate)
	gv.generateButton.Importance = widget.HighImportance
	gv.stopButton = widget.NewButton("停止", func() {
		if gv.stop != nil {
			gv.stop.Stop()
		}
	})
	gv.stopButton.Disable()
	gv.saveButton = widget.NewButton("保存代码", gv.saveCode)
	gv.saveButton.Disable()

	gv.attachmentsLabel = widget.NewLabel("")
	attachButton := widget.NewButton("添加附件", func() {
		pickAttachment(gv.app, func(att session.Attachment) {
			gv.attachments = append(gv.attachments, att)
			gv.refreshAttachmentsLabel()
		})
	})
	clearButton := widget.NewButton("清除附件", func() {
		gv.attachments = nil
		gv.refreshAttachmentsLabel()
	})

	inputRow := container.NewBorder(nil, nil,
		gv.tempSelect,
		container.NewHBox(attachButton, clearButton, gv.generateButton, gv.stopButton, gv.saveButton),
		gv.entry,
	)

	return container.NewBorder(
		container.NewVBox(optionsRow, gv.libsEntry),
		container.NewVBox(gv.attachmentsLabel, inputRow),
		nil, nil,
		gv.outputScroll,
	)
}

// Fragment implements session.Sink.
func (gv *CodeGenView) Fragment(text string) { gv.appendOutput(text) }

// Notice implements session.Sink.
func (gv *CodeGenView) Notice(text string) { gv.appendOutput(text) }

func (gv *CodeGenView) generate() {
	request := gv.entry.Text
	if request == "" && len(gv.attachments) == 0 {
		dialog.ShowInformation("提示", "请输入代码生成需求或添加附件。", gv.app.window)
		return
	}

	opts := session.CodeGenOptions{
		Language:      gv.langSelect.Selected,
		Libraries:     gv.libsEntry.Text,
		AddComments:   gv.commentsCheck.Checked,
		AddDocstrings: gv.docstringCheck.Checked,
		ExplainFirst:  gv.explainCheck.Checked,
	}
	level := levelFromChoice(gv.tempSelect.Selected)
	attachments := gv.attachments
	gv.attachments = nil
	gv.refreshAttachmentsLabel()
	gv.entry.SetText("")

	gv.generateButton.Disable()
	gv.stopButton.Enable()
	gv.saveButton.Disable()
	gv.stop = llm.NewStopSignal()
	stop := gv.stop

	gv.appendOutput(fmt.Sprintf("\n\n> 用户需求: %s\n\n", request))
	gv.app.SetStatus("正在构建Prompt并生成代码...")

	utils.SafeGo(gv.app.logger, "codegen run", func() {
		outcome, err := gv.app.codeGenSession.Run(context.Background(), request, attachments, opts, level, stop, gv)
		if err != nil {
			gv.app.logger.Error("Code generation failed: %v", err)
		}
		if outcome == session.OutcomeBlocked && err == nil {
			gv.appendOutput(session.CodeGenBlockedReply + "\n")
		}

		gv.app.SetStatus(statusForOutcome(outcome, "代码生成完成"))
		fyne.Do(func() {
			gv.generateButton.Enable()
			gv.stopButton.Disable()
			gv.saveButton.Enable()
		})
	})
}

// saveCode extracts the fenced code block from the transcript and writes it
// to a user-chosen file with the language's extension.
func (gv *CodeGenView) saveCode() {
	language := gv.langSelect.Selected
	code := session.ExtractCodeBlock(gv.transcript.String(), language)

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, gv.app.window)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		if err := utils.WriteFileContent(path, code); err != nil {
			gv.app.logger.Error("Failed to save code to %s: %v", path, err)
			dialog.ShowError(err, gv.app.window)
			return
		}
		dialog.ShowInformation("成功", "代码已成功保存到: "+path, gv.app.window)
	}, gv.app.window)
	fd.SetFileName("file" + session.FileExtension(language))
	fd.Show()
}

func (gv *CodeGenView) appendOutput(text string) {
	gv.transcript.WriteString(text)
	content := gv.transcript.String()
	fyne.Do(func() {
		gv.output.ParseMarkdown(content)
		gv.outputScroll.ScrollToBottom()
	})
}

func (gv *CodeGenView) refreshAttachmentsLabel() {
	if len(gv.attachments) == 0 {
		gv.attachmentsLabel.SetText("")
		return
	}
	names := make([]string, 0, len(gv.attachments))
	for _, att := range gv.attachments {
		names = append(names, att.Filename)
	}
	gv.attachmentsLabel.SetText("附件: " + strings.Join(names, ", "))
}
