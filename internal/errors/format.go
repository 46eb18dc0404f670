package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorWhite = "\033[37m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used. It starts enabled only
// when stderr is a terminal.
var colorEnabled = isTerminal(os.Stderr)

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string   { return color(colorRed, text) }
func cyan(text string) string  { return color(colorCyan, text) }
func white(text string) string { return color(colorWhite, text) }
func gray(text string) string  { return color(colorGray, text) }
func bold(text string) string  { return color(colorBold, text) }

// Format renders e for a terminal: a headline, the source location with
// context lines, the detail wrapped to 70 columns, the cause and a hint.
func (e *Error) Format() string {
	var b strings.Builder
	head := "ERROR: "
	if e.Code != "" {
		head = "ERROR " + e.Code + ": "
	}
	fmt.Fprintf(&b, "\n%s%s\n\n", red(bold(head)), white(e.Message))

	section := func(lines ...string) {
		for _, l := range lines {
			fmt.Fprintf(&b, "  %s\n", l)
		}
		b.WriteByte('\n')
	}

	if e.Location != nil {
		section(cyan(e.Location.String()))
		if len(e.Context) > 0 {
			ctx := make([]string, len(e.Context))
			for i, l := range e.Context {
				ctx[i] = gray("│ ") + l
			}
			section(ctx...)
		}
	}
	if e.Detail != "" {
		section(wrapText(e.Detail, 70)...)
	}
	if e.Wrapped != nil {
		section(gray("Cause: ") + e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n", cyan("Hint: "), e.Suggestion)
	}
	return b.String()
}

// FormatCompact renders e on one line: "file:line:col: CODE: message".
func (e *Error) FormatCompact() string {
	parts := make([]string, 0, 3)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	return strings.Join(append(parts, e.Message), ": ")
}

// FormatJSON renders e as a JSON object for machine consumers.
func (e *Error) FormatJSON() string {
	je := struct {
		Code       string    `json:"code,omitempty"`
		Category   Category  `json:"category"`
		Message    string    `json:"message"`
		Detail     string    `json:"detail,omitempty"`
		Location   *Location `json:"location,omitempty"`
		Suggestion string    `json:"suggestion,omitempty"`
		Cause      string    `json:"cause,omitempty"`
	}{e.Code, e.Category, e.Message, e.Detail, e.Location, e.Suggestion, ""}
	if e.Wrapped != nil {
		je.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(je)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText breaks text at spaces into lines of at most width bytes. A single
// word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Fprint writes err to w. A coded error anywhere in the chain is printed in
// full; anything else gets a one-line headline.
func Fprint(w io.Writer, err error) {
	var re *Error
	if stderrors.As(err, &re) {
		io.WriteString(w, re.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}

// PrintError writes err to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
