package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"llm-app-lab/filter"
	"llm-app-lab/llm"
	"llm-app-lab/utils"
)

// CodeGenBlockedReply is shown when the code request itself is flagged.
const CodeGenBlockedReply = "抱歉，因需求包含敏感词无法生成代码。"

// CodeGenOptions are the prompt-engineering toggles composed into the
// outgoing request.
type CodeGenOptions struct {
	Language      string
	Libraries     string
	AddComments   bool
	AddDocstrings bool
	ExplainFirst  bool
}

// CodeGenSession orchestrates a code-generation turn. It shares the chat
// streaming and filtering discipline but is stateless: each run is a single
// system+user exchange with no conversation memory.
type CodeGenSession struct {
	client Streamer
	filter *filter.Filter
	logger *utils.Logger
}

// NewCodeGenSession wires a code-generation session from its collaborators.
func NewCodeGenSession(client Streamer, f *filter.Filter, logger *utils.Logger) *CodeGenSession {
	return &CodeGenSession{
		client: client,
		filter: f,
		logger: logger,
	}
}

// Run executes one code-generation request. A flagged request blocks before
// any remote call; a flagged output fragment emits a notice, sets the stop
// signal and cancels the run.
func (c *CodeGenSession) Run(ctx context.Context, request string, attachments []Attachment, opts CodeGenOptions, level llm.TemperatureLevel, stop *llm.StopSignal, sink Sink) (Outcome, error) {
	if request == "" && len(attachments) == 0 {
		return OutcomeBlocked, ErrEmptySubmission
	}

	filteredRequest, flagged := c.filter.FilterText(request)
	if flagged {
		return OutcomeBlocked, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf("你是一位精通 %s 的资深软件开发专家。", opts.Language)},
		{Role: llm.RoleUser, Content: BuildCodeGenPrompt(filteredRequest, attachments, opts)},
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for fragment := range c.client.StreamChat(streamCtx, messages, level.Temperature(), stop) {
		filteredFragment, fragmentFlagged := c.filter.FilterText(fragment)
		sink.Fragment(filteredFragment)

		if fragmentFlagged {
			sink.Notice(codeGenNotice)
			stop.Stop()
			break
		}
	}

	if stop.Stopped() {
		return OutcomeCancelled, nil
	}
	return OutcomeCompleted, nil
}

// BuildCodeGenPrompt composes the user prompt from the request, the
// prompt-engineering options and the attachment contents.
func BuildCodeGenPrompt(request string, attachments []Attachment, opts CodeGenOptions) string {
	parts := []string{
		fmt.Sprintf("请为我生成一段 %s 代码，我的需求是：'%s'。", opts.Language, request),
		"\n请严格遵守以下要求：",
	}
	if opts.Libraries != "" {
		parts = append(parts, fmt.Sprintf("- 必须使用以下库或框架：%s。", opts.Libraries))
	}
	if opts.AddComments {
		parts = append(parts, "- 在代码的关键部分添加清晰的中文注释。")
	}
	if opts.AddDocstrings {
		parts = append(parts, "- 为所有函数或类编写详细的文档字符串 (docstrings)。")
	}
	parts = append(parts, fmt.Sprintf("- 所有的代码都必须包裹在 ```%s ... ``` 格式的代码块中。", strings.ToLower(opts.Language)))
	if opts.ExplainFirst {
		parts = append(parts, "\n在生成代码之前，请先用中文分步骤详细地解释你的实现思路，然后再给出完整的代码。")
	}
	return strings.Join(parts, "\n") + AttachmentSection(attachments)
}

var codeBlockPattern = regexp.MustCompile("(?is)```\\s*([a-z+]*)\\s*\\n([\\s\\S]*?)```")

// languageIdents maps a display language to the fence identifiers that count
// as that language.
var languageIdents = map[string][]string{
	"Python":     {"python", "py"},
	"JavaScript": {"javascript", "js"},
	"Java":       {"java"},
	"C++":        {"c++", "cpp", "cxx"},
	"SQL":        {"sql"},
}

// fileExtensions maps a display language to its save extension.
var fileExtensions = map[string]string{
	"Python":     ".py",
	"JavaScript": ".js",
	"Java":       ".java",
	"C++":        ".cpp",
	"SQL":        ".sql",
}

// ExtractCodeBlock pulls the code to save out of a full model response.
// It prefers the first fenced block whose language identifier matches the
// selected language, falls back to the first fenced block, and finally to
// the whole text when no fence is present.
func ExtractCodeBlock(text, language string) string {
	matches := codeBlockPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}
	for _, m := range matches {
		if languageMatches(m[1], language) {
			return m[2]
		}
	}
	return matches[0][2]
}

func languageMatches(fenceIdent, language string) bool {
	ident := strings.ToLower(fenceIdent)
	for _, valid := range languageIdents[language] {
		if ident == valid {
			return true
		}
	}
	// An unlabelled fence counts as a match only when C++ is selected.
	return ident == "" && language == "C++"
}

// FileExtension returns the save extension for a language, defaulting to
// plain text.
func FileExtension(language string) string {
	if ext, ok := fileExtensions[language]; ok {
		return ext
	}
	return ".txt"
}
