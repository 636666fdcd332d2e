package router

import (
	"log/slog"

	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/protocol"
)

// Group frames carry their member list in the payload; membership is owned by
// the domain layer, the hub just fans out. The sender is always skipped, and a
// failed delivery to one member never stops the rest.

func (r *Router) handleGroupMessage(from Sender, frame protocol.Frame) {
	groupID := frame.Str("groupId")
	content := frame.Get("content")
	members := frame.Members()
	if groupID == "" || !content.Exists() || len(members) == 0 {
		r.drop(from, frame.Type, "missing groupId, content or members")
		return
	}

	out := protocol.NewEnvelope(protocol.TypeGroupMessage).
		Set("senderId", from.UserID).
		Set("groupId", groupID).
		SetResult("content", content).
		SetResult("messageId", frame.Get("messageId"))
	r.fanOut(from, members, out)
}

func (r *Router) handleGroupTyping(from Sender, frame protocol.Frame) {
	groupID := frame.Str("groupId")
	members := frame.Members()
	if groupID == "" || len(members) == 0 {
		r.drop(from, frame.Type, "missing groupId or members")
		return
	}

	out := protocol.NewEnvelope(frame.Type).
		Set("senderId", from.UserID).
		Set("groupId", groupID)
	r.fanOut(from, members, out)
}

func (r *Router) fanOut(from Sender, members []string, env protocol.Envelope) {
	payload, err := env.Encode()
	if err != nil {
		r.logger.Error("Failed to encode group frame", slog.Any("error", err))
		return
	}
	delivered := 0
	for _, member := range members {
		if member == from.UserID {
			continue
		}
		r.registry.SendTo(member, payload)
		delivered++
	}
	r.logger.Debug("Group fan-out complete",
		slog.String("senderID", from.UserID),
		slog.Int("recipients", delivered),
	)
}
