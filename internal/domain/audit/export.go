package audit

import (
	"encoding/csv"
	"io"
	"time"
)

var csvHeader = []string{"id", "created_at", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip"}

// WriteCSV writes events as CSV with a header row.
func WriteCSV(w io.Writer, events []Event) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, evt := range events {
		if err := writer.Write([]string{
			evt.ID,
			evt.CreatedAt.UTC().Format(time.RFC3339),
			evt.ActorID,
			evt.Action,
			evt.EntityType,
			evt.EntityID,
			evt.RequestID,
			evt.IP,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
