// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logs implements the leveled logging backend used by the
// subsystems in this module that log (mempool, peer, pool). Each of those
// packages starts with its own silent Logger and Backend; a program that
// passes every subsystem's UseLogger a *Logger carved out of one Backend
// configures log destinations and levels once, centrally, and interleaves
// every subsystem's output through that Backend's single writer goroutine.
package logs

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
)

// logEntry is a single formatted line destined for every writer at or below
// its level.
type logEntry struct {
	level Level
	line  string
}

type logWriter interface {
	io.WriteCloser
	LogLevel() Level
}

type logWriterWrap struct {
	io.WriteCloser
	logLevel Level
}

func (lw logWriterWrap) LogLevel() Level { return lw.logLevel }

// Backend fans log entries out to every registered writer whose level
// permits them, using a single channel so concurrent subsystems never
// interleave partial lines.
type Backend struct {
	writers   []logWriter
	writeChan chan logEntry
	running   int32
	wg        sync.WaitGroup
	mu        sync.Mutex
}

// NewBackend creates a Backend with no writers attached. Call AddWriter /
// AddLogFile before any Logger built on top of it produces output.
func NewBackend() *Backend {
	b := &Backend{writeChan: make(chan logEntry, 100)}
	b.start()
	return b
}

func (b *Backend) start() {
	if !atomic.CompareAndSwapInt32(&b.running, 0, 1) {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for entry := range b.writeChan {
			b.mu.Lock()
			for _, w := range b.writers {
				if entry.level < w.LogLevel() {
					continue
				}
				_, _ = io.WriteString(w, entry.line)
			}
			b.mu.Unlock()
		}
	}()
}

// AddWriter registers an io.WriteCloser that receives every entry at or
// above level.
func (b *Backend) AddWriter(w io.WriteCloser, level Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writers = append(b.writers, logWriterWrap{w, level})
}

// AddStdout registers os.Stdout as a writer at level.
func (b *Backend) AddStdout(level Level) {
	b.AddWriter(nopCloser{os.Stdout}, level)
}

// AddLogFile registers a rotating log file at path, rotating every
// thresholdKB kilobytes and retaining maxRolls prior rolls.
func (b *Backend) AddLogFile(path string, level Level, thresholdKB, maxRolls int) error {
	r, err := rotator.New(path, int64(thresholdKB), false, maxRolls)
	if err != nil {
		return errors.Wrap(err, "failed to create rotating log file")
	}
	b.AddWriter(r, level)
	return nil
}

// Close flushes and closes every writer and stops the backend's goroutine.
func (b *Backend) Close() error {
	close(b.writeChan)
	b.wg.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for _, w := range b.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Logger writes prefixed, leveled lines for one subsystem (e.g. "CHAN",
// "MMPL", "PEER") into a shared Backend.
type Logger struct {
	backend  *Backend
	subsys   string
	level    int32 // atomic Level
}

// NewLogger returns a Logger that tags its lines with subsys and filters at
// level, writing into backend.
func NewLogger(backend *Backend, subsys string, level Level) *Logger {
	return &Logger{backend: backend, subsys: subsys, level: int32(level)}
}

// SetLevel adjusts the minimum level this logger will emit.
func (l *Logger) SetLevel(level Level) { atomic.StoreInt32(&l.level, int32(level)) }

// Level returns the logger's current minimum level.
func (l *Logger) Level() Level { return Level(atomic.LoadInt32(&l.level)) }

func (l *Logger) write(level Level, s string) {
	if level < l.Level() {
		return
	}
	line := fmt.Sprintf("%s [%s] %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"),
		level, l.subsys, s)
	l.backend.writeChan <- logEntry{level: level, line: line}
}

func (l *Logger) Tracef(format string, args ...interface{})    { l.write(LevelTrace, fmt.Sprintf(format, args...)) }
func (l *Logger) Debugf(format string, args ...interface{})    { l.write(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})     { l.write(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})     { l.write(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{})    { l.write(LevelError, fmt.Sprintf(format, args...)) }
func (l *Logger) Criticalf(format string, args ...interface{}) { l.write(LevelCritical, fmt.Sprintf(format, args...)) }

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
