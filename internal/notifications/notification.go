package notifications

import (
	"encoding/json"
	"fmt"
)

// Notification is one entry of a role's notification feed. Fields beyond
// the ones the poller reads are kept verbatim in Raw.
type Notification struct {
	ID      string
	Title   string
	Message string
	Read    bool
	Raw     map[string]any
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Raw = raw
	n.ID = stringField(raw, "id", "_id")
	n.Title = stringField(raw, "title")
	n.Message = stringField(raw, "message")
	n.Read, _ = raw["read"].(bool)
	return nil
}

func (n Notification) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Raw)+4)
	for k, v := range n.Raw {
		out[k] = v
	}
	out["id"] = n.ID
	out["read"] = n.Read
	if n.Title != "" {
		out["title"] = n.Title
	}
	if n.Message != "" {
		out["message"] = n.Message
	}
	return json.Marshal(out)
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// Snapshot is the poller's current view
type Snapshot struct {
	Items  []Notification
	Unread int
	// Err is the last polling failure, cleared by the next success
	Err error
}

func unreadCount(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}
