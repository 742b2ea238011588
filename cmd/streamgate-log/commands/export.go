package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/streamgate-io/streamgate-go/pkg/log"
)

// RunExport exports the log file as JSONL, one event per line.
func RunExport(path, output string) error {
	reader, err := log.NewReader(path)
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

	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(jsonEvent(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

// jsonEvent flattens an event into a JSON-friendly map with string
// enum names instead of numeric codes.
func jsonEvent(event log.Event) map[string]any {
	out := map[string]any{
		"timestamp":     event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		"connection_id": event.ConnectionID,
		"direction":     event.Direction.String(),
		"layer":         event.Layer.String(),
		"category":      event.Category.String(),
		"role":          event.LocalRole.String(),
	}
	if event.RemoteAddr != "" {
		out["remote_addr"] = event.RemoteAddr
	}
	switch {
	case event.Frame != nil:
		out["type"] = "frame"
		out["frame"] = event.Frame
	case event.Handshake != nil:
		out["type"] = "handshake"
		out["handshake"] = event.Handshake
	case event.StateChange != nil:
		out["type"] = "state"
		out["state_change"] = event.StateChange
	case event.Notice != nil:
		out["type"] = "notice"
		out["notice"] = map[string]any{
			"kind":   event.Notice.Kind.String(),
			"detail": event.Notice.Detail,
		}
	case event.Error != nil:
		out["type"] = "error"
		out["error"] = event.Error
	default:
		out["type"] = "unknown"
	}
	return out
}
