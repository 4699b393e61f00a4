// Package commands implements the ocpp-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp node [link:id] remote DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	linkID := shortenLinkID(event.LinkID)
	dir := event.Direction.String()

	var typeLabel string
	switch {
	case event.Frame != nil && event.Error == nil:
		typeLabel = "Frame"
	case event.Message != nil && event.Error == nil:
		typeLabel = event.Message.Type.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Route != nil:
		typeLabel = "Route"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s %s [link:%s] %s %-3s %s %s\n",
		ts, orDash(event.NodeID), linkID, orDash(event.RemoteID), dir, event.Layer.String(), typeLabel)

	switch {
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
		if event.Frame != nil {
			formatFrameDetails(w, event.Frame)
		}
		if event.Message != nil {
			fmt.Fprintf(w, "  RequestID: %s\n", event.Message.RequestID)
		}
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Route != nil:
		formatRouteDetails(w, event.Route)
	}

	fmt.Fprintln(w)
}

// shortenLinkID returns the first 8 characters of the link ID.
func shortenLinkID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %q", frame.Data)
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  RequestID: %s\n", msg.RequestID)
	if msg.Action != "" {
		fmt.Fprintf(w, "  Action: %s\n", msg.Action)
	}
	if msg.DestinationID != "" {
		fmt.Fprintf(w, "  Destination: %s\n", msg.DestinationID)
	}
	if len(msg.NetworkPath) > 0 {
		fmt.Fprintf(w, "  Path: %s\n", strings.Join(msg.NetworkPath, " > "))
	}
	if msg.ResultCode != nil {
		fmt.Fprintf(w, "  Result: %s", msg.ResultCode.String())
		if msg.ErrorCode != "" {
			fmt.Fprintf(w, " (%s)", msg.ErrorCode)
		}
		fmt.Fprintln(w)
	}
	if msg.Signatures > 0 {
		fmt.Fprintf(w, "  Signatures: %d\n", msg.Signatures)
	}
	if msg.Runtime != nil {
		fmt.Fprintf(w, "  Runtime: %s\n", formatDuration(*msg.Runtime))
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s", sc.Entity.String())
	if sc.Key != "" {
		fmt.Fprintf(w, " %s", sc.Key)
	}
	fmt.Fprintln(w)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatRouteDetails(w io.Writer, r *log.RouteEvent) {
	fmt.Fprintf(w, "  RequestID: %s\n", r.RequestID)
	fmt.Fprintf(w, "  Decision: %s", r.Decision)
	if r.NextHop != "" {
		fmt.Fprintf(w, " via %s", r.NextHop)
	}
	fmt.Fprintln(w)
	if len(r.Path) > 0 {
		fmt.Fprintf(w, "  Path: %s\n", strings.Join(r.Path, " > "))
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != "" {
		fmt.Fprintf(w, "  Code: %s\n", err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "service":
		return log.LayerService, nil
	case "routing":
		return log.LayerRouting, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, service, or routing)", s)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "route":
		return log.CategoryRoute, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, route, state, or error)", s)
	}
}

// RunView prints every event of the file at path that matches filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
