package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Operation represents the type of auditable operation
type Operation string

const (
	OpSessionSpawn    Operation = "session.spawn"
	OpSessionDelete   Operation = "session.delete"
	OpSessionStart    Operation = "session.start"
	OpPairingEnable   Operation = "pairing.enable"
	OpPairingDisable  Operation = "pairing.disable"
	OpMessageSend     Operation = "message.send"
	OpMessageQueue    Operation = "message.queue"
	OpHookReceived    Operation = "hook.received"
	OpContainerCreate Operation = "container.create"
	OpContainerRemove Operation = "container.remove"
)

// Event represents an audit log entry
type Event struct {
	Timestamp   time.Time              `json:"timestamp"`
	Operation   Operation              `json:"operation"`
	SourcePath  string                 `json:"source_path,omitempty"`
	SessionID   string                 `json:"session_id,omitempty"`
	SessionName string                 `json:"session_name,omitempty"`
	RequestID   string                 `json:"request_id,omitempty"`
	Success     bool                   `json:"success"`
	Error       string                 `json:"error,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Logger handles audit logging
type Logger struct {
	logger  *slog.Logger
	enabled bool
	mu      sync.RWMutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the default audit logger
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(true)
	})
	return defaultLogger
}

// New creates a new audit logger
func New(enabled bool) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &Logger{
		logger:  slog.New(handler),
		enabled: enabled,
	}
}

// SetEnabled enables or disables audit logging
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Log records an audit event
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	l.mu.RUnlock()

	if !enabled {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	attrs := []any{
		slog.String("audit", "true"),
		slog.String("operation", string(event.Operation)),
		slog.Bool("success", event.Success),
	}

	if event.SourcePath != "" {
		attrs = append(attrs, slog.String("source_path", event.SourcePath))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.SessionName != "" {
		attrs = append(attrs, slog.String("session_name", event.SessionName))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	if event.Details != nil {
		detailsJSON, _ := json.Marshal(event.Details)
		attrs = append(attrs, slog.String("details", string(detailsJSON)))
	}

	l.logger.Info("AUDIT", attrs...)
}

// LogSuccess records a successful operation
func (l *Logger) LogSuccess(op Operation, sourcePath, sessionID, sessionName string) {
	l.Log(&Event{
		Operation:   op,
		SourcePath:  sourcePath,
		SessionID:   sessionID,
		SessionName: sessionName,
		Success:     true,
	})
}

// LogFailure records a failed operation
func (l *Logger) LogFailure(op Operation, sourcePath, sessionID, sessionName string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	l.Log(&Event{
		Operation:   op,
		SourcePath:  sourcePath,
		SessionID:   sessionID,
		SessionName: sessionName,
		Success:     false,
		Error:       errMsg,
	})
}

// Convenience functions using default logger

func Log(event *Event) {
	Default().Log(event)
}

func LogSuccess(op Operation, sourcePath, sessionID, sessionName string) {
	Default().LogSuccess(op, sourcePath, sessionID, sessionName)
}

func LogFailure(op Operation, sourcePath, sessionID, sessionName string, err error) {
	Default().LogFailure(op, sourcePath, sessionID, sessionName, err)
}
