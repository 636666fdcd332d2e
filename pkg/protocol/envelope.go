package protocol

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// Envelope accumulates the fields of one outbound frame. NewEnvelope stamps
// the kind and the server-side timestamp; handlers add whitelisted fields and
// Encode the result once per recipient class.
type Envelope map[string]any

func NewEnvelope(eventType string) Envelope {
	return Envelope{
		"type":      eventType,
		"timestamp": time.Now().UnixMilli(),
	}
}

func (e Envelope) Set(key string, value any) Envelope {
	e[key] = value
	return e
}

// SetResult copies a gjson result verbatim, preserving its JSON shape. Absent
// results are skipped so optional fields never serialize as null.
func (e Envelope) SetResult(key string, res gjson.Result) Envelope {
	if res.Exists() {
		e[key] = json.RawMessage(res.Raw)
	}
	return e
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(map[string]any(e))
}

// OnlineUsersFrame is the snapshot pushed to every freshly opened connection.
func OnlineUsersFrame(users []string) ([]byte, error) {
	if users == nil {
		users = []string{}
	}
	return NewEnvelope(TypeOnlineUsers).Set("users", users).Encode()
}

// UserStatusFrame announces a presence transition to the other online users.
func UserStatusFrame(userID, status string) ([]byte, error) {
	return NewEnvelope(TypeUserStatus).
		Set("userId", userID).
		Set("status", status).
		Encode()
}
