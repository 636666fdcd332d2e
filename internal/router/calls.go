package router

import (
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/protocol"
)

// callPayloadFields whitelists the signaling field relayed per call kind. The
// hub is a dumb relay: payload contents are forwarded opaquely, never parsed.
// Duplicate or out-of-order frames are the peers' problem to reconcile.
var callPayloadFields = map[string][]string{
	protocol.TypeCallOffer:    {"offer"},
	protocol.TypeCallAnswer:   {"answer"},
	protocol.TypeIceCandidate: {"candidate"},
	protocol.TypeCallReject:   {},
	protocol.TypeCallEnd:      {},
}

// handleCallSignal relays one WebRTC handshake frame to the peer, stamping
// the sender id and a server-side timestamp.
func (r *Router) handleCallSignal(from Sender, frame protocol.Frame) {
	receiver := frame.Str("receiverId")
	if receiver == "" {
		r.drop(from, frame.Type, "missing receiverId")
		return
	}

	out := protocol.NewEnvelope(frame.Type).
		Set("senderId", from.UserID).
		SetResult("callId", frame.Get("callId"))
	for _, field := range callPayloadFields[frame.Type] {
		res := frame.Get(field)
		if !res.Exists() {
			r.drop(from, frame.Type, "missing "+field)
			return
		}
		out.SetResult(field, res)
	}
	r.send(receiver, out)
}
