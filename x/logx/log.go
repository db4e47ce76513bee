// Package logx is the structured logger shared by every HAL package.
//
// Only main-line paths (construction, destruction, configuration) log.
// Interrupt handlers and trampolines never call into this package.
package logx

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	Entity Component = "entity"
	Slot   Component = "slot"
	IRQ    Component = "irq"
	DMA    Component = "dma"
	UART   Component = "uart"
	Timer  Component = "timer"
	WDT    Component = "wdt"
	SPI    Component = "spi"
	Sim    Component = "sim"
	Clock  Component = "clock"
)

var (
	logger   *slog.Logger
	logLevel = new(slog.LevelVar)
	logMu    sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// SetLevel sets the minimum level for the default logger.
func SetLevel(level slog.Level) { logLevel.Set(level) }

// Level returns the current minimum level.
func Level() slog.Level { return logLevel.Level() }

// SetLogger replaces the default logger.
func SetLogger(l *slog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}

// NewText returns a text logger on w that honours SetLevel.
func NewText(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func current() *slog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

func Debug(c Component, msg string, args ...any) {
	current().Debug(msg, append([]any{"component", string(c)}, args...)...)
}

func Info(c Component, msg string, args ...any) {
	current().Info(msg, append([]any{"component", string(c)}, args...)...)
}

func Warn(c Component, msg string, args ...any) {
	current().Warn(msg, append([]any{"component", string(c)}, args...)...)
}

func Error(c Component, msg string, args ...any) {
	current().Error(msg, append([]any{"component", string(c)}, args...)...)
}
