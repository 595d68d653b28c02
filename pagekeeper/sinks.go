package pagekeeper

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/offsite/pagekeeper/internal/notify"
)

// Sink is the output interface for toasts.
type Sink = notify.Sink

// Notice is one toast.
type Notice = notify.Notice

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return notify.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return notify.NewWebhook(url, notify.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn func(ctx context.Context, n Notice) error) Sink {
	return notify.NewCallback(fn)
}

// sinksFromConfig builds the sinks listed in the configuration.
func sinksFromConfig(cfg []SinkConfig, stdout io.Writer, logger *slog.Logger) ([]Sink, error) {
	var out []Sink
	for _, sc := range cfg {
		switch sc.Type {
		case "stdout":
			out = append(out, NewStdoutSink(stdout))
		case "webhook":
			out = append(out, NewWebhookSink(sc.URL, logger))
		default:
			return nil, fmt.Errorf("pagekeeper: unknown sink type %q", sc.Type)
		}
	}
	return out, nil
}
