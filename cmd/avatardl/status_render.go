package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"avatardl/internal/download"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 28
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, truncate(label, statusLabelWidth-1)+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "FAILED"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// taskStatusLine renders one task transition, or "" for transitions not worth printing.
func taskStatusLine(task download.Task, colorize bool) string {
	switch task.Status {
	case download.StatusDownloading:
		msg := "downloading"
		if task.Attempts > 1 {
			msg = fmt.Sprintf("downloading (attempt %d)", task.Attempts)
		}
		return renderStatusLine(task.DisplayName, statusInfo, msg, colorize)
	case download.StatusComplete:
		return renderStatusLine(task.DisplayName, statusOK,
			fmt.Sprintf("%s (%s)", task.OutputPath, formatBytes(task.BytesWritten)), colorize)
	case download.StatusFailed:
		return renderStatusLine(task.DisplayName, statusError,
			fmt.Sprintf("%s: %s", task.ErrorKind, task.ErrorMessage), colorize)
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
