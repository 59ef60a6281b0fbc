package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxAgeDays = 7
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	level  atomic.Int32
	logger = log.New(defaultOutput(), "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

// defaultOutput rotates through lumberjack when LOGFILE is set and writes to stderr otherwise.
func defaultOutput() io.Writer {
	logFile := os.Getenv("LOGFILE")
	if logFile == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename: "./logs/" + logFile,
		MaxSize:  envInt("LOGFILE_MAX_SIZE_MB", defaultMaxSizeMB),
		MaxAge:   envInt("LOGFILE_MAX_AGE_DAYS", defaultMaxAgeDays),
	}
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		fmt.Fprintf(os.Stderr, "invalid value for %s: %q, using %d\n", name, raw, fallback)
		return fallback
	}
	return v
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetLevel drops messages below l.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func enabled(l Level) bool {
	return l >= Level(level.Load())
}

func Info(category string, content ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[INFO][%s]%s", ColorGreen, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

func Error(category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[ERROR][%s]%s", ColorRed, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

func Warn(category string, content ...interface{}) {
	if !enabled(LevelWarn) {
		return
	}
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[WARN][%s]%s", ColorYellow, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

func Debug(category string, content ...interface{}) {
	if !enabled(LevelDebug) {
		return
	}
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[DEBUG][%s]%s", ColorBlue, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}

func init() {
	SetLevel(LevelInfo)
}
