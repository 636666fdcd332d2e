// Package router dispatches inbound events to their delivery strategy:
// direct, group fan-out, topic fan-out or role broadcast. It owns no state
// beyond references to the registry and subscription table, never retries and
// never queues; an offline recipient simply receives nothing.
package router

import (
	"context"
	"log/slog"

	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/hub"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/metrics"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/protocol"
)

// Registry is the slice of the connection registry the router needs.
type Registry interface {
	SendTo(userID string, payload []byte)
	IsOnline(userID string) bool
	UsersByRole(role string) []string
}

// Subscriptions is the topic subscription table surface.
type Subscriptions interface {
	Subscribe(topic, userID string)
	Unsubscribe(topic, userID string)
	Subscribers(topic string) []string
}

// Sender identifies the authenticated origin of an inbound frame. The user id
// and role come from the connection handshake, never from the payload.
type Sender struct {
	UserID string
	Role   string
	Conn   hub.Handle
}

type Router struct {
	logger   *slog.Logger
	registry Registry
	subs     Subscriptions
}

func New(logger *slog.Logger, registry Registry, subs Subscriptions) *Router {
	return &Router{
		logger:   logger.With(slog.String("component", "event_router")),
		registry: registry,
		subs:     subs,
	}
}

// Route handles one inbound frame. Malformed frames are dropped and logged;
// nothing in here is allowed to take the connection down.
func (r *Router) Route(ctx context.Context, from Sender, msg []byte) {
	frame, err := protocol.ParseFrame(msg)
	if err != nil {
		r.drop(from, "", err.Error())
		return
	}

	metrics.EventsRouted.WithLabelValues(frame.Type).Inc()
	r.logger.Debug("Routing event",
		slog.String("type", frame.Type),
		slog.String("senderID", from.UserID),
	)

	switch frame.Type {
	case protocol.TypeMessage:
		r.handleDirectMessage(from, frame)
	case protocol.TypeTyping, protocol.TypeStopTyping:
		r.handleTypingSignal(from, frame)
	case protocol.TypeMessageSeen, protocol.TypeMessageDeleted, protocol.TypeMessageEdited:
		r.handleMessageReceipt(from, frame)
	case protocol.TypeGroupMessage:
		r.handleGroupMessage(from, frame)
	case protocol.TypeGroupTyping, protocol.TypeGroupStopTyping:
		r.handleGroupTyping(from, frame)
	case protocol.TypeCallOffer, protocol.TypeCallAnswer, protocol.TypeCallReject,
		protocol.TypeCallEnd, protocol.TypeIceCandidate:
		r.handleCallSignal(from, frame)
	case protocol.TypeSubscribeReel, protocol.TypeUnsubscribeReel:
		r.handleSubscription(from, frame)
	case protocol.TypeReelFeedbackAdded, protocol.TypeReelApproved,
		protocol.TypePlacementReady, protocol.TypeFacultyComment:
		r.handleTopicUpdate(from, frame)
	case protocol.TypeNotification:
		r.handleNotification(from, frame)
	default:
		r.drop(from, frame.Type, "unknown event kind")
	}
}

// drop records a protocol error; the connection stays open.
func (r *Router) drop(from Sender, eventType, reason string) {
	metrics.FramesDropped.Inc()
	r.logger.Warn("Dropping inbound frame",
		slog.String("type", eventType),
		slog.String("senderID", from.UserID),
		slog.String("reason", reason),
	)
}

// send encodes an envelope and delivers it to every handle of userID.
func (r *Router) send(userID string, env protocol.Envelope) {
	payload, err := env.Encode()
	if err != nil {
		r.logger.Error("Failed to encode outbound frame", slog.Any("error", err))
		return
	}
	r.registry.SendTo(userID, payload)
}

// reply encodes an envelope and echoes it on the sender's own connection.
func (r *Router) reply(from Sender, env protocol.Envelope) {
	payload, err := env.Encode()
	if err != nil {
		r.logger.Error("Failed to encode reply frame", slog.Any("error", err))
		return
	}
	from.Conn.Send(payload)
}
