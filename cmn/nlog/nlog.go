// Package nlog is the runtime's logger: timestamped, severity-leveled,
// buffered, and rotated by size. Modeled on the teacher's own hand-rolled
// logger package rather than an imported logging library, because the
// teacher reaches for nothing beyond flag/os/time for this concern either.
package nlog

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{'I', 'W', 'E'}

const (
	// MaxSize is the size, in bytes, at which a log file is rotated.
	defaultMaxSize = 4 * 1024 * 1024
)

var (
	MaxSize int64 = defaultMaxSize

	toStderr     bool
	alsoToStderr bool

	logDir string
	title  string

	mu  sync.Mutex
	w   *bufio.Writer
	f   *os.File
	sz  int64
	pid = os.Getpid()
)

// InitFlags registers the -logtostderr/-alsologtostderr flags, mirroring
// the teacher's nlog.InitFlags.
func InitFlags(flset *flag.FlagSet) {
	flset.BoolVar(&toStderr, "logtostderr", false, "log to standard error instead of files")
	flset.BoolVar(&alsoToStderr, "alsologtostderr", false, "log to standard error as well as files")
}

// SetLogDirRole sets the directory log files are rotated into and a short
// role tag (e.g. the local runtime id) embedded in file names.
func SetLogDirRole(dir, role string) {
	mu.Lock()
	defer mu.Unlock()
	logDir, title = dir, role
}

func Infof(format string, args ...any)    { logf(sevInfo, format, args...) }
func Infoln(args ...any)                  { logln(sevInfo, args...) }
func Warningf(format string, args ...any) { logf(sevWarn, format, args...) }
func Warningln(args ...any)               { logln(sevWarn, args...) }
func Errorf(format string, args ...any)   { logf(sevErr, format, args...) }
func Errorln(args ...any)                 { logln(sevErr, args...) }

func logf(sev severity, format string, args ...any) {
	write(sev, fmt.Sprintf(format, args...))
}

func logln(sev severity, args ...any) {
	write(sev, fmt.Sprintln(args...))
}

func write(sev severity, msg string) {
	line := formatHdr(sev) + strings.TrimRight(msg, "\n") + "\n"

	if toStderr {
		os.Stderr.WriteString(line)
		return
	}
	if alsoToStderr || sev >= sevWarn {
		os.Stderr.WriteString(line)
	}

	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		if err := rotateLocked(); err != nil {
			os.Stderr.WriteString("nlog: failed to open log file: " + err.Error() + "\n")
			return
		}
	}
	n, _ := w.WriteString(line)
	sz += int64(n)
	if sz >= MaxSize {
		w.Flush()
		f.Close()
		w, f = nil, nil
	}
}

// under mu
func rotateLocked() error {
	dir := logDir
	if dir == "" {
		dir = os.TempDir()
	}
	now := time.Now()
	name := fmt.Sprintf("%s.%04d%02d%02d-%02d%02d%02d.%d.log",
		title, now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), pid)
	path := filepath.Join(dir, name)
	var err error
	f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w = bufio.NewWriter(f)
	sz = 0
	return nil
}

// Flush writes any buffered log lines to disk. If exit is true the file is
// also synced and closed; call this immediately before process exit.
func Flush(exit ...bool) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		return
	}
	w.Flush()
	if len(exit) > 0 && exit[0] {
		f.Sync()
		f.Close()
		w, f = nil, nil
	}
}

func formatHdr(sev severity) string {
	var fn string
	var ln int
	if _, file, line, ok := runtime.Caller(3); ok {
		fn, ln = filepath.Base(file), line
	}
	now := time.Now()
	return fmt.Sprintf("%c %s %s:%d ", sevChar[sev], now.Format("15:04:05.000000"), fn, ln)
}
