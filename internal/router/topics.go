package router

import (
	"log/slog"

	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/protocol"
)

// handleSubscription mutates the subscription table and synchronously acks
// the subscribing connection.
func (r *Router) handleSubscription(from Sender, frame protocol.Frame) {
	topic := frame.Str("reelId")
	if topic == "" {
		r.drop(from, frame.Type, "missing reelId")
		return
	}

	ackType := protocol.TypeSubscribed
	if frame.Type == protocol.TypeSubscribeReel {
		r.subs.Subscribe(topic, from.UserID)
	} else {
		r.subs.Unsubscribe(topic, from.UserID)
		ackType = protocol.TypeUnsubscribed
	}

	r.reply(from, protocol.NewEnvelope(ackType).Set("reelId", topic))
}

// handleTopicUpdate wraps a content-update event in a topic envelope and fans
// it out to every subscriber currently resolvable through the registry.
func (r *Router) handleTopicUpdate(from Sender, frame protocol.Frame) {
	topic := resolveTopicKey(frame)
	if topic == "" {
		r.drop(from, frame.Type, "missing topic key")
		return
	}

	out := protocol.NewEnvelope(protocol.TypeTopicUpdate).
		Set("topic", topic).
		Set("updateType", frame.Type).
		Set("senderId", from.UserID).
		SetResult("payload", frame.Get("payload"))
	payload, err := out.Encode()
	if err != nil {
		r.logger.Error("Failed to encode topic update", slog.Any("error", err))
		return
	}

	subscribers := r.subs.Subscribers(topic)
	for _, userID := range subscribers {
		r.registry.SendTo(userID, payload)
	}
	r.logger.Debug("Topic fan-out complete",
		slog.String("topic", topic),
		slog.String("updateType", frame.Type),
		slog.Int("subscribers", len(subscribers)),
	)
}

// handleNotification routes a NOTIFICATION by its addressing: a role field
// broadcasts to every online user with that role, a receiverId delivers
// directly, and a topic key fans out to subscribers.
func (r *Router) handleNotification(from Sender, frame protocol.Frame) {
	out := protocol.NewEnvelope(protocol.TypeNotification).
		Set("senderId", from.UserID).
		SetResult("title", frame.Get("title")).
		SetResult("body", frame.Get("body")).
		SetResult("payload", frame.Get("payload"))

	if role := frame.Str("role"); role != "" {
		payload, err := out.Encode()
		if err != nil {
			r.logger.Error("Failed to encode notification", slog.Any("error", err))
			return
		}
		targets := r.registry.UsersByRole(role)
		for _, userID := range targets {
			if userID == from.UserID {
				continue
			}
			r.registry.SendTo(userID, payload)
		}
		r.logger.Debug("Role broadcast complete", slog.String("role", role), slog.Int("recipients", len(targets)))
		return
	}

	if receiver := frame.Str("receiverId"); receiver != "" {
		r.send(receiver, out)
		return
	}

	if topic := resolveTopicKey(frame); topic != "" {
		payload, err := out.Set("topic", topic).Encode()
		if err != nil {
			r.logger.Error("Failed to encode notification", slog.Any("error", err))
			return
		}
		for _, userID := range r.subs.Subscribers(topic) {
			r.registry.SendTo(userID, payload)
		}
		return
	}

	r.drop(from, frame.Type, "missing role, receiverId or topic key")
}

// resolveTopicKey extracts the topic identifier a content-update refers to.
func resolveTopicKey(frame protocol.Frame) string {
	for _, field := range []string{"reelId", "placementId", "topicId"} {
		if v := frame.Str(field); v != "" {
			return v
		}
	}
	return ""
}
