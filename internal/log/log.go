// Package log provides the leveled, structured logger PRADS uses. The
// fixed-format asset log line is rendered by package asset; cmd/prads
// writes it through a separate Logger on the asset_log file, so each
// asset line is the message of an INFO-level RFC 5424 record.
//
// It follows the same shape as the logger used throughout the ingest
// pipelines this module was grown from: a Logger wraps one or more
// io.WriteClosers, gates output by Level, and renders each line as an
// RFC 5424 syslog message with optional structured-data key/value pairs.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
	FATAL
)

const (
	defaultDepth = 3
	defaultMsgID = `prads`

	maxHostname = 255
	maxAppname  = 48
)

var ErrNotOpen = errors.New("logger is not open")

func (l Level) String() string {
	switch l {
	case OFF:
		return `OFF`
	case DEBUG:
		return `DEBUG`
	case INFO:
		return `INFO`
	case WARN:
		return `WARN`
	case ERROR:
		return `ERROR`
	case CRITICAL:
		return `CRITICAL`
	case FATAL:
		return `FATAL`
	}
	return `UNKNOWN`
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	case FATAL:
		return rfc5424.User | rfc5424.Emergency
	}
	return rfc5424.User | rfc5424.Debug
}

func LevelFromString(s string) Level {
	switch strings.ToUpper(s) {
	case `DEBUG`:
		return DEBUG
	case `INFO`:
		return INFO
	case `WARN`:
		return WARN
	case `ERROR`:
		return ERROR
	case `CRITICAL`:
		return CRITICAL
	case `FATAL`:
		return FATAL
	case `OFF`:
		return OFF
	}
	return INFO
}

// KV builds a structured-data parameter from a name and an arbitrary value.
func KV(name string, value interface{}) rfc5424.SDParam {
	var v string
	switch x := value.(type) {
	case string:
		v = x
	default:
		v = fmt.Sprintf("%v", value)
	}
	return rfc5424.SDParam{Name: name, Value: v}
}

// KVErr is shorthand for KV("error", err).
func KVErr(err error) rfc5424.SDParam {
	return KV("error", err)
}

type Logger struct {
	mtx      sync.Mutex
	wtrs     []io.WriteCloser
	lvl      Level
	hot      bool
	hostname string
	appname  string
}

// New creates a logger writing to wtr at level INFO.
func New(wtr io.WriteCloser) *Logger {
	l := &Logger{wtrs: []io.WriteCloser{wtr}, lvl: INFO, hot: true}
	l.guessHostnameAppname()
	return l
}

// NewFile opens (creating if needed) f in append mode and returns a logger
// writing to it.
func NewFile(f string) (*Logger, error) {
	fout, err := os.OpenFile(f, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, err
	}
	return New(fout), nil
}

// NewDiscard returns a logger that throws away everything; useful as a
// default before a real log_file is known.
func NewDiscard() *Logger {
	return New(discardCloser{})
}

func (l *Logger) guessHostnameAppname() {
	if h, err := os.Hostname(); err == nil {
		l.hostname = trimLen(h, maxHostname)
	}
	if len(os.Args) > 0 {
		exe := filepath.Base(os.Args[0])
		if ext := filepath.Ext(exe); len(ext) > 0 && len(ext) < len(exe) {
			exe = strings.TrimSuffix(exe, ext)
		}
		l.appname = trimLen(exe, maxAppname)
	}
}

func trimLen(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func (l *Logger) SetLevel(lvl Level) { l.mtx.Lock(); l.lvl = lvl; l.mtx.Unlock() }
func (l *Logger) GetLevel() Level    { l.mtx.Lock(); defer l.mtx.Unlock(); return l.lvl }

// AddWriter adds another destination for every subsequent log line.
func (l *Logger) AddWriter(w io.WriteCloser) {
	l.mtx.Lock()
	l.wtrs = append(l.wtrs, w)
	l.mtx.Unlock()
}

func (l *Logger) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.hot = false
	var err error
	for _, w := range l.wtrs {
		if e := w.Close(); e != nil {
			err = e
		}
	}
	return err
}

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) { l.output(defaultDepth, DEBUG, msg, sds...) }
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam)  { l.output(defaultDepth, INFO, msg, sds...) }
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam)  { l.output(defaultDepth, WARN, msg, sds...) }
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) { l.output(defaultDepth, ERROR, msg, sds...) }
func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) {
	l.output(defaultDepth, CRITICAL, msg, sds...)
}

// FatalCode logs msg at FATAL and exits the process with code. Only
// initialization failures and signal-delivered shutdowns may call this.
func (l *Logger) FatalCode(code int, msg string, sds ...rfc5424.SDParam) {
	l.output(defaultDepth, FATAL, msg, sds...)
	os.Exit(code)
}

func (l *Logger) output(depth int, lvl Level, msg string, sds ...rfc5424.SDParam) {
	if l.lvl == OFF || lvl < l.lvl {
		return
	}
	ts := time.Now()
	m := rfc5424.Message{
		Priority:  lvl.priority(),
		Timestamp: ts,
		Hostname:  l.hostname,
		AppName:   l.appname,
		MessageID: defaultMsgID,
		Message:   []byte(fmt.Sprintf("[%s] %s", callLoc(depth), msg)),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{ID: `prads@1`, Parameters: sds}}
	}
	b, err := m.MarshalBinary()
	if err != nil {
		return
	}
	l.write(b)
}

func (l *Logger) write(b []byte) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.hot {
		return
	}
	for _, w := range l.wtrs {
		w.Write(b)
		w.Write([]byte("\n"))
	}
}

func callLoc(depth int) string {
	_, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "?"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

type discardCloser struct{}

func (discardCloser) Write(b []byte) (int, error) { return len(b), nil }
func (discardCloser) Close() error                { return nil }
