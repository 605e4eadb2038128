package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/diewo77/sheet-invoices/internal/db"
	"github.com/diewo77/sheet-invoices/internal/handlers"
	"github.com/diewo77/sheet-invoices/internal/middleware"
	"github.com/diewo77/sheet-invoices/internal/policy"
	"github.com/diewo77/sheet-invoices/internal/retention"
	"github.com/diewo77/sheet-invoices/internal/services"
	"github.com/diewo77/sheet-invoices/internal/sheet"
)

// logWriter writes to standard output and, once initialized, the log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator == nil {
		return len(p), nil
	}
	return logRotator.Write(p)
}

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it write to the backend. When adding new subsystems,
// add the logger variable here and to the subsystemLoggers map.
var (
	backendLog = slog.NewBackend(logWriter{})

	// logRotator is nil until initLogRotator runs. Close it on shutdown.
	logRotator *rotator.Rotator

	log          = backendLog.Logger("SRVR")
	httpLog      = backendLog.Logger("HTTP")
	servicesLog  = backendLog.Logger("SVCS")
	sheetLog     = backendLog.Logger("SHET")
	dbLog        = backendLog.Logger("DBSE")
	policyLog    = backendLog.Logger("POLC")
	retentionLog = backendLog.Logger("RETN")
)

func init() {
	db.UseLogger(dbLog)
	services.UseLogger(servicesLog)
	sheet.UseLogger(sheetLog)
	middleware.UseLogger(httpLog)
	handlers.UseLogger(httpLog)
	policy.UseLogger(policyLog)
	retention.UseLogger(retentionLog)
}

// subsystemLoggers maps each subsystem identifier to its logger.
var subsystemLoggers = map[string]slog.Logger{
	"SRVR": log,
	"HTTP": httpLog,
	"SVCS": servicesLog,
	"SHET": sheetLog,
	"DBSE": dbLog,
	"POLC": policyLog,
	"RETN": retentionLog,
}

// initLogRotator makes the rotator write logFile and roll files next to it.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	logRotator = r
	return nil
}

// setLogLevel sets the level of one subsystem. Invalid subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := slog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels applies logLevel to every subsystem.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
