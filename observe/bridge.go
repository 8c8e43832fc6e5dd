package observe

import (
	"strings"

	"github.com/eatingfood142434/Hackthe6ix/types"
)

// FromRuntimeEvent converts an executor runtime event into an observe
// event suitable for sinks.
func FromRuntimeEvent(in types.Event) Event {
	e := Event{
		Timestamp: in.Timestamp,
		RunID:     in.RunID,
		SessionID: in.SessionID,
		Workflow:  in.Workflow,
		Provider:  in.Provider,
		NodeID:    in.NodeID,
		Name:      in.NodeID,
		Message:   in.Message,
		Error:     in.Error,
		Attributes: map[string]any{
			"eventType": string(in.Type),
		},
	}

	eventType := string(in.Type)
	switch {
	case strings.HasPrefix(eventType, "graph.node"):
		e.Kind = KindNode
	case strings.HasPrefix(eventType, "run."):
		e.Kind = KindRun
	default:
		e.Kind = KindCustom
	}

	switch {
	case strings.HasSuffix(eventType, "started"):
		e.Status = StatusStarted
	case strings.HasSuffix(eventType, "skipped"):
		e.Status = StatusSkipped
	case strings.HasSuffix(eventType, "failed"):
		e.Status = StatusFailed
	default:
		e.Status = StatusCompleted
	}
	return e
}
