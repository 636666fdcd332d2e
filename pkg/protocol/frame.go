package protocol

import (
	"errors"

	"github.com/tidwall/gjson"
)

var (
	ErrNotJSON     = errors.New("frame is not valid JSON")
	ErrMissingType = errors.New("frame is missing a 'type' field")
)

// Frame is a decoded view over one inbound client message. Field access goes
// through gjson paths so handlers only touch the fields they whitelist.
type Frame struct {
	Type string
	raw  string
}

func ParseFrame(msg []byte) (Frame, error) {
	if !gjson.ValidBytes(msg) {
		return Frame{}, ErrNotJSON
	}
	raw := string(msg)
	typ := gjson.Get(raw, "type")
	if !typ.Exists() || typ.String() == "" {
		return Frame{}, ErrMissingType
	}
	return Frame{Type: typ.String(), raw: raw}, nil
}

// Str returns the string value at path, or "" when absent.
func (f Frame) Str(path string) string {
	return gjson.Get(f.raw, path).String()
}

// Get returns the raw gjson result at path for opaque passthrough.
func (f Frame) Get(path string) gjson.Result {
	return gjson.Get(f.raw, path)
}

// Members returns the "members" string array carried by group frames.
func (f Frame) Members() []string {
	res := gjson.Get(f.raw, "members")
	if !res.IsArray() {
		return nil
	}
	arr := res.Array()
	members := make([]string, 0, len(arr))
	for _, m := range arr {
		if s := m.String(); s != "" {
			members = append(members, s)
		}
	}
	return members
}
