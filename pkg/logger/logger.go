// Package logger provides the structured JSON logger used by every service.
package logger

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Logger is the logging seam services are written against. Tests inject the
// nop implementation or a mock.
type Logger interface {
	Info(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Debug(message string, fields map[string]interface{})
	Fatal(message string, fields map[string]interface{})
}

type jsonLogger struct {
	serviceName string
	out         *log.Logger
}

// New returns a JSON line logger tagged with the service name.
func New(serviceName string) Logger {
	return &jsonLogger{
		serviceName: serviceName,
		out:         log.New(os.Stdout, "", 0),
	}
}

func (l *jsonLogger) log(level, message string, fields map[string]interface{}) {
	entry := make(map[string]interface{}, len(fields)+4)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["service"] = l.serviceName
	entry["message"] = message
	for k, v := range fields {
		entry[k] = v
	}

	data, _ := json.Marshal(entry)
	l.out.Println(string(data))
}

func (l *jsonLogger) Info(message string, fields map[string]interface{}) {
	l.log("info", message, fields)
}

func (l *jsonLogger) Error(message string, fields map[string]interface{}) {
	l.log("error", message, fields)
}

func (l *jsonLogger) Warn(message string, fields map[string]interface{}) {
	l.log("warn", message, fields)
}

func (l *jsonLogger) Debug(message string, fields map[string]interface{}) {
	l.log("debug", message, fields)
}

func (l *jsonLogger) Fatal(message string, fields map[string]interface{}) {
	l.log("fatal", message, fields)
	os.Exit(1)
}

// NewNop returns a logger that discards everything.
func NewNop() Logger { return &nopLogger{} }

type nopLogger struct{}

func (l *nopLogger) Info(string, map[string]interface{})  {}
func (l *nopLogger) Error(string, map[string]interface{}) {}
func (l *nopLogger) Warn(string, map[string]interface{})  {}
func (l *nopLogger) Debug(string, map[string]interface{}) {}
func (l *nopLogger) Fatal(string, map[string]interface{}) {}
