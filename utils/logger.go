/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const (
	timestampFormat = "2006-01-02 15:04:05.000"
	dateDirFormat   = "2006-01-02"
)

// loggerRegistryMu guards consoleOutput and the variables below it.
var loggerRegistryMu sync.RWMutex

var consoleOutput io.Writer = os.Stdout

var (
	loggerRegistry    = map[string]*logrus.Logger{}
	fileHooks         = map[string]*LevelWriterHook{}
	defaultLevel      = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLogFormat  = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	fileLogEnabled    = EnvDefaultBool("FILE_LOG_ENABLED", false)
	fileLogDir        = EnvDefaultString("FILE_LOG_DIR", "logs")
	fileLogMaxAgeDays = EnvDefaultInt("FILE_LOG_MAX_AGE_DAYS", 7)
	fileLogFormat     = EnvDefaultString("FILE_LOG_FORMAT", "text")
	defaultFileLevel  = ParseLogLevel(EnvDefaultString("FILE_LOG_LEVEL", "trace"))
)

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func normalizeFormat(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return "json"
	}
	return "text"
}

// ConfigureConsoleLogFormat selects "json" or "text" for loggers created afterwards.
func ConfigureConsoleLogFormat(format string) {
	loggerRegistryMu.Lock()
	consoleLogFormat = normalizeFormat(format)
	loggerRegistryMu.Unlock()
}

// ConfigureFileLogFormat selects "json" or "text" for file hooks attached afterwards.
func ConfigureFileLogFormat(format string) {
	loggerRegistryMu.Lock()
	fileLogFormat = normalizeFormat(format)
	loggerRegistryMu.Unlock()
}

// ConfigureConsoleOutput redirects loggers created afterwards to w.
func ConfigureConsoleOutput(w io.Writer) {
	if w == nil {
		return
	}
	loggerRegistryMu.Lock()
	consoleOutput = w
	loggerRegistryMu.Unlock()
}

// ConfigureLogLevel sets the level of every registered logger and of loggers created later.
func ConfigureLogLevel(levelStr string) {
	lvl := ParseLogLevel(levelStr)
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	defaultLevel = lvl
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
}

// ConfigureFileLogLevel bounds what the file hooks write. The logger level
// still applies first, so the file level can only narrow it.
func ConfigureFileLogLevel(levelStr string) {
	lvl := ParseLogLevel(levelStr)
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	defaultFileLevel = lvl
	for _, h := range fileHooks {
		h.level.Store(uint32(lvl))
	}
}

// ConfigureFileLog enables daily rolling files under dir for every
// registered logger and for loggers created later. Day directories older
// than maxAgeDays are removed; zero or less keeps them all.
func ConfigureFileLog(dir string, maxAgeDays int) error {
	if dir == "" {
		return fmt.Errorf("file log directory is empty")
	}
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	fileLogEnabled = true
	fileLogDir = dir
	fileLogMaxAgeDays = maxAgeDays
	for name, lg := range loggerRegistry {
		if err := attachFileHookLocked(name, lg); err != nil {
			return err
		}
	}
	return nil
}

// CloseFileLogs detaches the file hooks and closes their files. Loggers
// created afterwards write to the console only.
func CloseFileLogs() error {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	fileLogEnabled = false
	var firstErr error
	for name, h := range fileHooks {
		if lg, ok := loggerRegistry[name]; ok {
			replaceHooks(lg, h)
		}
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(fileHooks, name)
	}
	return firstErr
}

func replaceHooks(l *logrus.Logger, drop logrus.Hook) {
	kept := make(logrus.LevelHooks)
	for lvl, hooks := range l.Hooks {
		for _, h := range hooks {
			if h != drop {
				kept[lvl] = append(kept[lvl], h)
			}
		}
	}
	l.ReplaceHooks(kept)
}

func attachFileHookLocked(name string, l *logrus.Logger) error {
	if prev, ok := fileHooks[name]; ok {
		if prev.dir == fileLogDir {
			return nil
		}
		replaceHooks(l, prev)
		_ = prev.Close()
		delete(fileHooks, name)
	}
	h, err := AddDailyRollingFileHook(l, name, fileLogDir, fileLogMaxAgeDays, fileLogFormat)
	if err != nil {
		return err
	}
	h.level.Store(uint32(defaultFileLevel))
	fileHooks[name] = h
	return nil
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// GetLogger returns the logger registered under name, creating it if needed.
func GetLogger(name string) *logrus.Logger {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return l
	}
	return NewLogger(name)
}

func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

// NewLogger creates and registers a named logger writing to the console,
// plus daily files when file logging is enabled.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	l := logrus.New()
	l.SetOutput(consoleOutput)
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	if consoleLogFormat == "json" {
		l.SetFormatter(newJSONFormatter())
	} else {
		l.SetFormatter(&Log4jFormatter{LoggerName: name, NameWidth: 10})
	}
	loggerRegistry[name] = l
	if fileLogEnabled {
		if err := attachFileHookLocked(name, l); err != nil {
			l.WithError(err).Warn("file logging disabled for this logger")
		}
	}
	return l
}

func newJSONFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", callerPath(f.File, f.Line)
		},
	}
}

// Log4jFormatter renders "time LEVEL pid - [name] file:line : message k=v".
type Log4jFormatter struct {
	LoggerName string
	NameWidth  int
	NoColor    bool
}

func (f *Log4jFormatter) wrap(s, code string) string {
	if f.NoColor {
		return s
	}
	return colorWrap(s, code)
}

func (f *Log4jFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteByte(' ')
	level := fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String()))
	if f.NoColor {
		b.WriteString(level)
	} else {
		b.WriteString(colorLevel(level, entry.Level))
	}
	b.WriteByte(' ')
	b.WriteString(f.wrap(fmt.Sprintf("%-6d", os.Getpid()), ansiMagenta))
	b.WriteString(" - ")
	name := f.LoggerName
	if f.NameWidth > 0 && len(name) > f.NameWidth {
		name = name[:f.NameWidth]
	}
	b.WriteString(f.wrap(fmt.Sprintf("%*s", f.NameWidth, name), ansiCyan))
	if entry.Caller != nil {
		b.WriteString(f.wrap(" "+callerPath(entry.Caller.File, entry.Caller.Line), ansiFaint))
	}
	b.WriteString(f.wrap(" :", ansiFaint))
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// LevelWriterHook routes each entry to the daily file of its level.
type LevelWriterHook struct {
	dir       string
	writers   map[logrus.Level]*dailyLevelWriter
	formatter logrus.Formatter
	level     atomic.Uint32
}

func (h *LevelWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *LevelWriterHook) Fire(e *logrus.Entry) error {
	if e.Level > logrus.Level(h.level.Load()) {
		return nil
	}
	w, ok := h.writers[e.Level]
	if !ok {
		return nil
	}
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = w.Write(line)
	return err
}

func (h *LevelWriterHook) Close() error {
	var firstErr error
	seen := map[*dailyLevelWriter]bool{}
	for _, w := range h.writers {
		if seen[w] {
			continue
		}
		seen[w] = true
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dailyLevelWriter appends to <baseDir>/<yyyy-mm-dd>/<level>.log and
// rolls over when the date changes.
type dailyLevelWriter struct {
	baseDir    string
	level      string
	maxAgeDays int
	now        func() time.Time

	mu      sync.Mutex
	curDate string
	file    *os.File
}

func newDailyLevelWriter(baseDir, level string, maxAgeDays int) *dailyLevelWriter {
	return &dailyLevelWriter{baseDir: baseDir, level: level, maxAgeDays: maxAgeDays, now: time.Now}
}

func (w *dailyLevelWriter) ensureOpen(date string) error {
	if w.file != nil && w.curDate == date {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, w.level+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.curDate = date
	return nil
}

// cleanup removes day directories older than maxAgeDays.
func (w *dailyLevelWriter) cleanup() {
	if w.maxAgeDays <= 0 {
		return
	}
	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		return
	}
	today, _ := time.Parse(dateDirFormat, w.curDate)
	cutoff := today.AddDate(0, 0, -w.maxAgeDays)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, err := time.Parse(dateDirFormat, e.Name())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(w.baseDir, e.Name()))
		}
	}
}

func (w *dailyLevelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	date := w.now().Format(dateDirFormat)
	rolled := w.curDate != date
	if err := w.ensureOpen(date); err != nil {
		return 0, err
	}
	if rolled {
		w.cleanup()
	}
	return w.file.Write(p)
}

func (w *dailyLevelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.curDate = ""
	return err
}

// AddDailyRollingFileHook attaches a hook writing l's entries to one file
// per level under dir. Fatal and panic entries share the error file.
func AddDailyRollingFileHook(l *logrus.Logger, name, dir string, maxAgeDays int, format string) (*LevelWriterHook, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	errW := newDailyLevelWriter(dir, "error", maxAgeDays)
	writers := map[logrus.Level]*dailyLevelWriter{
		logrus.TraceLevel: newDailyLevelWriter(dir, "trace", maxAgeDays),
		logrus.DebugLevel: newDailyLevelWriter(dir, "debug", maxAgeDays),
		logrus.InfoLevel:  newDailyLevelWriter(dir, "info", maxAgeDays),
		logrus.WarnLevel:  newDailyLevelWriter(dir, "warn", maxAgeDays),
		logrus.ErrorLevel: errW,
		logrus.FatalLevel: errW,
		logrus.PanicLevel: errW,
	}
	h := &LevelWriterHook{dir: dir, writers: writers}
	h.level.Store(uint32(logrus.TraceLevel))
	if normalizeFormat(format) == "json" {
		h.formatter = newJSONFormatter()
	} else {
		h.formatter = &Log4jFormatter{LoggerName: name, NameWidth: 10, NoColor: true}
	}
	l.AddHook(h)
	return h, nil
}

func callerPath(file string, line int) string {
	dir := filepath.Base(filepath.Dir(file))
	return dir + "/" + filepath.Base(file) + ":" + strconv.Itoa(line)
}

const (
	ansiReset   = "\x1b[0m"
	ansiFaint   = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func colorWrap(s, code string) string { return code + s + ansiReset }

func colorLevel(s string, level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorWrap(s, ansiRed)
	case logrus.WarnLevel:
		return colorWrap(s, ansiYellow)
	case logrus.InfoLevel:
		return colorWrap(s, ansiGreen)
	case logrus.DebugLevel:
		return colorWrap(s, ansiBlue)
	default:
		return colorWrap(s, ansiMagenta)
	}
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}

func EnvDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return def
		}
		return n
	}
	return def
}
