package service

import (
	"path/filepath"
	"strings"
)

// Display limits applied while rendering, distinct from validation limits.
const (
	maxOptionLength   = 100
	maxFormTitle      = 45
	maxFormLabel      = 45
	maxFormHint       = 100
	maxInputPreview   = 500
	maxDiffDisplayLen = 1500
)

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if runeLen(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// strike wraps every non-empty line in mrkdwn strikethrough.
func strike(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = "~" + l + "~"
		}
	}
	return strings.Join(lines, "\n")
}

func preview(s string, n int) string {
	if runeLen(s) <= n {
		return s
	}
	return truncate(s, n) + "..."
}

var languageByExt = map[string]string{
	"ts":    "typescript",
	"tsx":   "tsx",
	"js":    "javascript",
	"jsx":   "jsx",
	"py":    "python",
	"rb":    "ruby",
	"go":    "go",
	"rs":    "rust",
	"java":  "java",
	"kt":    "kotlin",
	"swift": "swift",
	"cs":    "csharp",
	"cpp":   "cpp",
	"c":     "c",
	"h":     "c",
	"md":    "markdown",
	"json":  "json",
	"yaml":  "yaml",
	"yml":   "yaml",
	"toml":  "toml",
	"sql":   "sql",
	"sh":    "bash",
	"bash":  "bash",
	"zsh":   "bash",
}

// languageFor maps a filename to a highlighting hint, falling back to "diff".
func languageFor(filename string) string {
	if filename == "" {
		return "diff"
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return "diff"
}

// displayDiff applies the diff display budget.
func displayDiff(diff string) (shown string, truncated bool) {
	if runeLen(diff) <= maxDiffDisplayLen {
		return diff, false
	}
	return truncate(diff, maxDiffDisplayLen) + "\n... (truncated)", true
}

func truncateAll(options []string, n int) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = truncate(o, n)
	}
	return out
}
