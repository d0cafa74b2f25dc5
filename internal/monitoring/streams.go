package monitoring

import (
	"io"
	"log"
	"sync"
)

var (
	streamMu    sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three tracker logging streams.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	streamMu.Lock()
	defer streamMu.Unlock()
	opsLogger = newLogger("[tracker] ", ops)
	diagLogger = newLogger("[tracker] ", diag)
	traceLogger = newLogger("[tracker] ", trace)
}

// SetSingleWriter routes all three streams to one writer.
// Pass nil to disable all stream logging.
func SetSingleWriter(w io.Writer) {
	SetLogWriters(w, w, w)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func printf(l **log.Logger, format string, args ...interface{}) {
	streamMu.RLock()
	lg := *l
	streamMu.RUnlock()
	if lg != nil {
		lg.Printf(format, args...)
	}
}

// Opsf logs to the ops stream (actionable warnings, failed sources, fatal fits).
func Opsf(format string, args ...interface{}) { printf(&opsLogger, format, args...) }

// Diagf logs to the diag stream (fit results, fallbacks, calibration context).
func Diagf(format string, args ...interface{}) { printf(&diagLogger, format, args...) }

// Tracef logs to the trace stream (per-frame detection telemetry).
func Tracef(format string, args ...interface{}) { printf(&traceLogger, format, args...) }
