package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
	colorWhite = "\033[37m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func paint(text string, codes ...string) string {
	if !colorEnabled || len(codes) == 0 {
		return text
	}
	return strings.Join(codes, "") + text + colorReset
}

const (
	indent    = "  "
	wrapWidth = 70
)

// Format returns a multi-line error message for terminal display.
func (e *ReactiveError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(paint("ERROR ", colorRed, colorBold))
		b.WriteString(paint(e.Code+": ", colorWhite, colorBold))
	} else {
		b.WriteString(paint("ERROR: ", colorRed, colorBold))
	}
	b.WriteString(paint(e.Message, colorWhite))
	b.WriteString("\n\n")

	section := func(label, labelColor, body string) {
		if body == "" {
			return
		}
		b.WriteString(indent)
		if label != "" {
			b.WriteString(paint(label, labelColor))
		}
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	if e.Location != nil {
		section("", "", paint(e.Location.String(), colorCyan))
	}
	if e.Wrapped != nil {
		section("Cause: ", colorGray, e.Wrapped.Error())
	}
	if lines := wrapText(e.Detail, wrapWidth); len(lines) > 0 {
		section("", "", strings.Join(lines, "\n"+indent))
	}
	section("Hint: ", colorCyan, e.Suggestion)
	if e.Example != "" {
		section("Example:", colorCyan, "\n"+indent+indent+strings.ReplaceAll(e.Example, "\n", "\n"+indent+indent))
	}
	if e.DocURL != "" {
		b.WriteString(indent)
		b.WriteString(paint("Learn more: ", colorGray))
		b.WriteString(paint(e.DocURL, colorBlue))
		b.WriteString("\n")
	}

	return b.String()
}

// FormatCompact returns a compact single-line error format.
func (e *ReactiveError) FormatCompact() string {
	if e.Location == nil {
		return e.Error()
	}
	return e.Location.String() + ": " + e.Error()
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Cause      string        `json:"cause,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
}

// FormatJSON returns the error as a single-line JSON object, for tools that
// consume CLI output.
func (e *ReactiveError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText splits text into lines of at most width characters, breaking
// on whitespace. Words longer than width get a line of their own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := []string{words[0]}
	for _, word := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(word) > width {
			lines = append(lines, word)
			continue
		}
		*last += " " + word
	}
	return lines
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	FprintError(os.Stderr, err)
}

// FprintError prints a formatted error to w. Engine errors carrying a
// registered code are formatted like any other ReactiveError.
func FprintError(w io.Writer, err error) {
	var re *ReactiveError
	if stderrors.As(err, &re) {
		fmt.Fprint(w, re.Format())
		return
	}
	var c coder
	if stderrors.As(err, &c) {
		if _, ok := GetTemplate(c.Code()); ok {
			fmt.Fprint(w, FromError(err, c.Code()).Format())
			return
		}
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint("ERROR:", colorRed, colorBold), err.Error())
}
