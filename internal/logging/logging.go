// Package logging wraps logrus with the colored, banner-style output
// the rest of the transport's command-line entry points expect.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ANSI color codes used by the section/banner helpers below. Field-level
// coloring is left to logrus' own TextFormatter.
const (
	colorReset = "\033[0m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
)

// Entry is a connection-scoped logger returned by Conn.
type Entry = logrus.Entry

// std is the package-level logger every helper below writes through.
var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel sets the minimum level the logger emits.
func SetLevel(level logrus.Level) {
	std.SetLevel(level)
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Conn returns a *logrus.Entry scoped to a single connection, tagging
// every subsequent line with its id so concurrent transfers in the same
// process don't interleave unreadably.
func Conn(id string) *logrus.Entry {
	return std.WithField("conn", id)
}

func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { std.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { std.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

// Fatalf logs at error level and exits the process with status 1.
func Fatalf(format string, args ...interface{}) {
	std.Errorf(format, args...)
	os.Exit(1)
}

// Section prints a boxed section header, kept from the teacher's banner
// style for the CLI entry points' startup log.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", colorCyan, border, colorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", colorCyan, colorReset, title, colorCyan, colorReset)
	fmt.Printf("%s╚%s╝%s\n\n", colorCyan, border, colorReset)
}

// Banner prints the application banner shown once at process start.
func Banner(title, version string) {
	fmt.Printf("%s%s%s %sv%s%s\n", colorCyan, title, colorReset, colorGreen, version, colorReset)
}
