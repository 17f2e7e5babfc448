// Package output renders the build pipeline's terminal output: framed
// sections, status rows, soft-warning notices, and per-architecture
// line prefixing for interleaved concurrent job output.
package output

import (
	"fmt"
	"io"
	"os"
	"time"
)

// ANSI escape constants.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// IsCI reports whether we are running inside a CI pipeline.
func IsCI() bool {
	return os.Getenv("CI") == "true"
}

// IsGitLabCI reports whether we are running inside a GitLab CI job.
func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// GitLab collapsible section markers. No-ops outside GitLab CI.

func SectionStart(w io.Writer, id, name string) {
	if !IsGitLabCI() {
		return
	}
	fmt.Fprintf(w, "\033[0Ksection_start:%d:%s\r\033[0K%s\n", time.Now().Unix(), id, name)
}

func SectionEnd(w io.Writer, id string) {
	if !IsGitLabCI() {
		return
	}
	fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", time.Now().Unix(), id)
}

// Notice prints a soft advisory that does not block the build.
func Notice(w io.Writer, color bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if color {
		fmt.Fprintf(w, "%snotice:%s %s\n", colorYellow, colorReset, msg)
	} else {
		fmt.Fprintf(w, "notice: %s\n", msg)
	}
}

// Fatal prints a fatal error marker and message to the error stream.
func Fatal(w io.Writer, color bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if color {
		fmt.Fprintf(w, "%sfatal:%s %s\n", colorRed, colorReset, msg)
	} else {
		fmt.Fprintf(w, "fatal: %s\n", msg)
	}
}

// StatusIcon returns a status glyph, colored when enabled.
func StatusIcon(status string, color bool) string {
	var glyph, c string
	switch status {
	case "success":
		glyph, c = "✓", colorGreen
	case "failed":
		glyph, c = "✗", colorRed
	default:
		glyph, c = "⊘", colorYellow
	}
	if !color {
		return glyph
	}
	return c + glyph + colorReset
}

// Dimmed returns dimmed text if color is enabled.
func Dimmed(text string, color bool) string {
	if !color {
		return text
	}
	return colorGray + text + colorReset
}
