// Package asynclog implements the AsyncLogger from spec.md §4.1: a
// thread-safe, line-oriented file logger whose producers never block on
// disk I/O. Grounded on original_source/src/Logger/Logger.hpp's
// double-buffer-swap-under-a-condition-variable algorithm, translated from
// std::ofstream/std::thread to log.FileWriter/goroutine, and on the
// teacher's dependency-injection convention for phuslu/log (lobbyclient.go's
// nil-logger-discards-output shape): every other component takes a
// *Logger instead of reaching for a global. The disk-writing backend
// itself is phuslu/log's FileWriter, the same package the teacher already
// depends on for console output.
package asynclog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phuslu/log"
)

const (
	prefixInfo  = "[INFO]  "
	prefixWarn  = "[WARN]  "
	prefixError = "[ERROR] "
)

// Logger is a process-wide (but not necessarily singleton: construct one
// and thread it explicitly to whatever needs it, per Design Note 1) async
// line logger.
type Logger struct {
	dir string

	mu       sync.Mutex
	cond     *sync.Cond
	current  []string
	writeBuf []string
	running  bool
	started  bool
	degraded bool

	writer   *log.FileWriter
	workerWG sync.WaitGroup
}

// New returns a Logger that will lazily create dir and a
// YYYY-MM-DD_HH-MM-SS.log file inside it on the first call to
// Info/Warn/Error. Construction itself never touches the filesystem.
func New(dir string) *Logger {
	l := &Logger{
		dir:     dir,
		current: make([]string, 0, 30),
		running: true,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Info enqueues an INFO-level line.
func (l *Logger) Info(msg string) { l.log(prefixInfo, msg) }

// Infof enqueues a formatted INFO-level line.
func (l *Logger) Infof(format string, args ...any) { l.log(prefixInfo, fmt.Sprintf(format, args...)) }

// Warn enqueues a WARN-level line.
func (l *Logger) Warn(msg string) { l.log(prefixWarn, msg) }

// Warnf enqueues a formatted WARN-level line.
func (l *Logger) Warnf(format string, args ...any) { l.log(prefixWarn, fmt.Sprintf(format, args...)) }

// Error enqueues an ERROR-level line.
func (l *Logger) Error(msg string) { l.log(prefixError, msg) }

// Errorf enqueues a formatted ERROR-level line.
func (l *Logger) Errorf(format string, args ...any) { l.log(prefixError, fmt.Sprintf(format, args...)) }

func (l *Logger) log(prefix, msg string) {
	line := prefix + time.Now().Format("[2006-01-02 15:04:05] ") + msg

	l.mu.Lock()
	if !l.started {
		l.started = true
		l.initFile()
		if !l.degraded {
			l.workerWG.Add(1)
			go l.workerLoop()
		}
	}
	if !l.degraded {
		l.current = append(l.current, line)
	}
	l.mu.Unlock()

	l.cond.Signal()
}

// initFile creates dir and constructs the FileWriter backing the
// timestamped log file. Called with mu held. Directory creation is
// checked eagerly, synchronously, before any worker goroutine is spawned,
// so a bad log directory never races Close against a live worker; a
// failure past that point (the file itself being unwritable) is caught
// lazily on FileWriter's first real write and silently dropped there,
// like any other log I/O failure (spec.md §7). On the eager failure, one
// phuslu/log warning is emitted to surface the degradation.
func (l *Logger) initFile() {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		log.Warn().Msgf("asynclog: could not create log directory %q, logging degraded: %v", l.dir, err)
		l.degraded = true
		return
	}

	name := time.Now().Format("2006-01-02_15-04-05") + ".log"
	l.writer = &log.FileWriter{
		Filename: filepath.Join(l.dir, name),
		FileMode: 0o644,
	}
}

// workerLoop waits on the condition variable, swaps the current/write
// buffers, and writes the write buffer to disk outside the lock — the
// double-buffering trick that keeps producers off the disk I/O path.
func (l *Logger) workerLoop() {
	defer l.workerWG.Done()

	for {
		l.mu.Lock()
		for len(l.current) == 0 && l.running {
			l.cond.Wait()
		}
		if len(l.current) == 0 && !l.running {
			l.mu.Unlock()
			return
		}

		l.current, l.writeBuf = l.writeBuf, l.current
		l.mu.Unlock()

		for _, line := range l.writeBuf {
			fmt.Fprintln(l.writer, line)
		}
		l.writeBuf = l.writeBuf[:0]
	}
}

// Close signals the worker to drain remaining lines and exit, then joins
// it and closes the file. Safe to call even if no log call was ever made.
func (l *Logger) Close() error {
	l.mu.Lock()
	started := l.started
	degraded := l.degraded
	l.running = false
	l.mu.Unlock()
	l.cond.Signal()

	if started && !degraded {
		l.workerWG.Wait()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		return l.writer.Close()
	}
	return nil
}
