package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the key used to store request ID in the gin context
const RequestIDKey = "request_id"

const (
	remoteBufferSize    = 256 * 1024
	remoteFlushInterval = 5 * time.Second
)

// New builds the process logger. Production gets JSON with ISO8601
// timestamps, everything else gets the colored development encoder. When
// cloudWatchWriter is set, every entry is also written to it as JSON, in
// batches flushed every few seconds or on Sync.
func New(env string, cloudWatchWriter io.Writer) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cloudWatchWriter == nil {
		log, err := config.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return log, nil
	}

	level := zap.NewAtomicLevelAt(config.Level.Level())

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(config.EncoderConfig), zapcore.AddSync(os.Stdout), level)

	// CloudWatch wants plain JSON, no color escapes in the level.
	cwEncoderConfig := config.EncoderConfig
	cwEncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	remote := &zapcore.BufferedWriteSyncer{
		WS:            zapcore.AddSync(cloudWatchWriter),
		Size:          remoteBufferSize,
		FlushInterval: remoteFlushInterval,
	}
	cwCore := zapcore.NewCore(zapcore.NewJSONEncoder(cwEncoderConfig), remote, level)

	return zap.New(zapcore.NewTee(consoleCore, cwCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ForRequest returns log tagged with the request ID of ctx, when ctx is a
// gin context carrying one.
func ForRequest(ctx context.Context, log *zap.Logger) *zap.Logger {
	if rid := RequestID(ctx); rid != "" {
		return log.With(zap.String(RequestIDKey, rid))
	}
	return log
}

// RequestID extracts the request ID from a gin context or from a context
// built with WithRequestID.
func RequestID(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.GetString(RequestIDKey)
	}
	if rid, ok := ctx.Value(requestIDCtxKey{}).(string); ok {
		return rid
	}
	return ""
}

type requestIDCtxKey struct{}

// WithContext creates a new context carrying the given request ID
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, requestID)
}
