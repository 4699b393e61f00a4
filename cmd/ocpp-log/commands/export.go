package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
)

// RunExport writes the events of path matching filter as JSONL or CSV.
func RunExport(path, format, output string, filter log.Filter) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

var csvHeader = []string{
	"timestamp", "node_id", "link_id", "remote_id", "direction", "layer",
	"category", "type", "request_id", "action", "path", "result",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}

func csvRow(event log.Event) []string {
	eventType := "unknown"
	var requestID, action, path, result string
	switch {
	case event.Error != nil:
		eventType = "error"
		result = event.Error.Message
	case event.Message != nil:
		eventType = event.Message.Type.String()
	case event.Route != nil:
		eventType = "route"
		requestID = event.Route.RequestID
		result = event.Route.Decision
		path = strings.Join(event.Route.Path, " ")
	case event.StateChange != nil:
		eventType = "state"
		result = event.StateChange.NewState
	case event.Frame != nil:
		eventType = "frame"
	}
	if m := event.Message; m != nil {
		requestID = m.RequestID
		action = m.Action
		path = strings.Join(m.NetworkPath, " ")
		if m.ResultCode != nil && event.Error == nil {
			result = m.ResultCode.String()
		}
	}

	return []string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.NodeID,
		event.LinkID,
		event.RemoteID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		eventType,
		requestID,
		action,
		path,
		result,
	}
}
