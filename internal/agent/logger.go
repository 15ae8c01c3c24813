// Package agent drives the model/tool loop: it sends the conversation to the
// LLM, executes the tool calls it returns, and feeds results back until the
// model stops asking for tools.
package agent

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging for agent operations.
type Logger struct {
	zap *zap.Logger
}

// NopLogger returns a logger that records nothing.
func NopLogger() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// NewLogger creates a logger that appends JSON records to logPath. An empty
// path disables logging.
func NewLogger(logPath string) (*Logger, error) {
	if logPath == "" {
		return NopLogger(), nil
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(logFile),
		zapcore.InfoLevel,
	)

	return &Logger{zap: zap.New(core)}, nil
}

// Zap exposes the underlying logger for components that take *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.zap == nil {
		return zap.NewNop()
	}
	return l.zap
}

// Close syncs the logger; call on shutdown.
func (l *Logger) Close() error {
	return l.zap.Sync()
}

// LLMCall logs one completion request.
func (l *Logger) LLMCall(model string, inputTokens, outputTokens int64, duration time.Duration) {
	l.zap.Info("llm call",
		zap.String("model", model),
		zap.Int64("input_tokens", inputTokens),
		zap.Int64("output_tokens", outputTokens),
		zap.Int64("total_tokens", inputTokens+outputTokens),
		zap.Duration("duration", duration),
	)
}

// Step logs an agent loop iteration.
func (l *Logger) Step(step int, toolCalls int) {
	l.zap.Debug("agent step",
		zap.Int("step", step),
		zap.Int("tool_calls", toolCalls),
	)
}

// Error logs an error.
func (l *Logger) Error(msg string, err error) {
	l.zap.Error(msg, zap.Error(err))
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}
