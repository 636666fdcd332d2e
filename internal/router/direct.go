package router

import (
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/protocol"
)

// handleDirectMessage relays a chat message to the receiver's handles and
// echoes a delivery acknowledgment back to the sender's own connection.
func (r *Router) handleDirectMessage(from Sender, frame protocol.Frame) {
	receiver := frame.Str("receiverId")
	conversation := frame.Str("conversationId")
	content := frame.Get("content")
	if receiver == "" || conversation == "" || !content.Exists() {
		r.drop(from, frame.Type, "missing receiverId, conversationId or content")
		return
	}

	out := protocol.NewEnvelope(protocol.TypeMessage).
		Set("senderId", from.UserID).
		Set("conversationId", conversation).
		SetResult("content", content).
		SetResult("messageId", frame.Get("messageId"))
	r.send(receiver, out)

	// The ack confirms a delivery attempt was made; an offline receiver gets
	// nothing and neither does the sender.
	if !r.registry.IsOnline(receiver) {
		return
	}
	ack := protocol.NewEnvelope(protocol.TypeMessageDelivered).
		Set("conversationId", conversation).
		SetResult("messageId", frame.Get("messageId"))
	r.reply(from, ack)
}

// handleTypingSignal forwards typing / stop-typing indicators to one peer.
func (r *Router) handleTypingSignal(from Sender, frame protocol.Frame) {
	receiver := frame.Str("receiverId")
	conversation := frame.Str("conversationId")
	if receiver == "" || conversation == "" {
		r.drop(from, frame.Type, "missing receiverId or conversationId")
		return
	}

	out := protocol.NewEnvelope(frame.Type).
		Set("senderId", from.UserID).
		Set("conversationId", conversation)
	r.send(receiver, out)
}

// handleMessageReceipt forwards seen / deleted / edited signals. Edits carry
// the replacement content; the other two only reference the message.
func (r *Router) handleMessageReceipt(from Sender, frame protocol.Frame) {
	receiver := frame.Str("receiverId")
	conversation := frame.Str("conversationId")
	messageID := frame.Str("messageId")
	if receiver == "" || conversation == "" || messageID == "" {
		r.drop(from, frame.Type, "missing receiverId, conversationId or messageId")
		return
	}

	out := protocol.NewEnvelope(frame.Type).
		Set("senderId", from.UserID).
		Set("conversationId", conversation).
		Set("messageId", messageID)
	if frame.Type == protocol.TypeMessageEdited {
		content := frame.Get("content")
		if !content.Exists() {
			r.drop(from, frame.Type, "edit missing content")
			return
		}
		out.SetResult("content", content)
	}
	r.send(receiver, out)
}
