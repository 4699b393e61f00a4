package log

import (
	"context"
	"log/slog"
	"strings"
)

// SlogAdapter writes protocol events to an slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter creates an adapter that logs at Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of the adapter logging at level. Error events
// are always logged at Warn or above.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.NodeID != "" {
		attrs = append(attrs, slog.String("node_id", event.NodeID))
	}
	if event.LinkID != "" {
		attrs = append(attrs, slog.String("link_id", event.LinkID))
	}
	if event.RemoteID != "" {
		attrs = append(attrs, slog.String("remote_id", event.RemoteID))
	}

	level := a.level
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		m := event.Message
		attrs = append(attrs,
			slog.String("request_id", m.RequestID),
			slog.String("msg_type", m.Type.String()),
		)
		if m.Action != "" {
			attrs = append(attrs, slog.String("action", m.Action))
		}
		if m.DestinationID != "" {
			attrs = append(attrs, slog.String("destination", m.DestinationID))
		}
		if len(m.NetworkPath) > 0 {
			attrs = append(attrs, slog.String("path", "["+strings.Join(m.NetworkPath, ",")+"]"))
		}
		if m.ResultCode != nil {
			attrs = append(attrs, slog.String("result", m.ResultCode.String()))
		}
		if m.ErrorCode != "" {
			attrs = append(attrs, slog.String("error_code", m.ErrorCode))
		}
		if m.Runtime != nil {
			attrs = append(attrs, slog.Duration("runtime", *m.Runtime))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Key != "" {
			attrs = append(attrs, slog.String("key", event.StateChange.Key))
		}
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Route != nil:
		attrs = append(attrs,
			slog.String("request_id", event.Route.RequestID),
			slog.String("decision", event.Route.Decision),
			slog.String("next_hop", event.Route.NextHop),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != "" {
			attrs = append(attrs, slog.String("error_code", event.Error.Code))
		}
		level = max(level, slog.LevelWarn)
	}

	a.logger.LogAttrs(context.Background(), level, "ocpp", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
