package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/entitygraph/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Decoded 3 entities (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() if none
// is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability Hooks
// =============================================================================

// logHooks reports serde and schema events at debug level.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.SerdeHooks  = logHooks{}
	_ observability.SchemaHooks = logHooks{}
)

func newLogHooks(l *log.Logger) logHooks { return logHooks{logger: l} }

func (h logHooks) OnSerialize(kind string, count, size int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("serialize failed", "kind", kind, "count", count, "took", d, "err", err)
		return
	}
	h.logger.Debug("serialized", "kind", kind, "count", count, "bytes", size, "took", d)
}

func (h logHooks) OnDeserialize(kind string, count int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("deserialize failed", "kind", kind, "took", d, "err", err)
		return
	}
	h.logger.Debug("deserialized", "kind", kind, "count", count, "took", d)
}

// OnUnknownField is a no-op: the serializer already warns.
func (h logHooks) OnUnknownField(string, string) {}

func (h logHooks) OnSchemaLoad(source string, classes int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("schema load failed", "source", source, "err", err)
		return
	}
	h.logger.Debug("schema loaded", "source", source, "classes", classes, "took", d)
}
