package log

import (
	"io"
	"log"
	"os"
)

var (
	Trace   *log.Logger
	Info    *log.Logger
	Warning *log.Logger
	Error   *log.Logger
)

func init() {
	InitLog()
}

// InitLog (re)creates the loggers. Trace output is only enabled when
// DIGITPAD_TRACE is set to 1 or 2; 2 adds file and line information.
func InitLog() {
	var traceHandle io.Writer
	traceFlags := log.Ldate | log.Ltime

	switch os.Getenv("DIGITPAD_TRACE") {
	case "1":
		traceHandle = os.Stdout
	case "2":
		traceHandle = os.Stdout
		traceFlags |= log.Lshortfile
	default:
		traceHandle = io.Discard
	}

	Trace = log.New(traceHandle, "TRACE: ", traceFlags)
	Info = log.New(os.Stdout, "", 0)
	Warning = log.New(os.Stdout, "WARNING: ", log.Ldate|log.Ltime)
	Error = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// SetOutput redirects every logger to w. Used by tests to keep output quiet.
func SetOutput(w io.Writer) {
	Trace.SetOutput(w)
	Info.SetOutput(w)
	Warning.SetOutput(w)
	Error.SetOutput(w)
}
