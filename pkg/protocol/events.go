// Package protocol defines the frame vocabulary spoken over a hub connection:
// the inbound event kinds clients may send and the outbound envelopes the hub
// delivers. Every outbound frame carries a "type" and a server-stamped
// millisecond "timestamp".
package protocol

// Inbound event kinds, tagged by the frame's "type" field.
const (
	TypeMessage         = "message"
	TypeGroupMessage    = "group-message"
	TypeTyping          = "typing"
	TypeStopTyping      = "stop-typing"
	TypeGroupTyping     = "group-typing"
	TypeGroupStopTyping = "group-stop-typing"
	TypeMessageSeen     = "message-seen"
	TypeMessageDeleted  = "message-deleted"
	TypeMessageEdited   = "message-edited"

	TypeCallOffer    = "call-offer"
	TypeCallAnswer   = "call-answer"
	TypeCallReject   = "call-reject"
	TypeCallEnd      = "call-end"
	TypeIceCandidate = "ice-candidate"

	TypeSubscribeReel   = "SUBSCRIBE_REEL"
	TypeUnsubscribeReel = "UNSUBSCRIBE_REEL"

	TypeReelFeedbackAdded = "REEL_FEEDBACK_ADDED"
	TypeReelApproved      = "REEL_APPROVED"
	TypePlacementReady    = "PLACEMENT_READY"
	TypeFacultyComment    = "FACULTY_COMMENT"
	TypeNotification      = "NOTIFICATION"
)

// Outbound-only kinds.
const (
	TypeMessageDelivered = "message-delivered"
	TypeOnlineUsers      = "online-users"
	TypeUserStatus       = "user-status"
	TypeSubscribed       = "subscribed"
	TypeUnsubscribed     = "unsubscribed"
	TypeTopicUpdate      = "topic-update"
)

// Role tags carried by connections, used for role broadcasts.
const (
	RoleStudent = "STUDENT"
	RoleFaculty = "FACULTY"
)

// Presence states announced in user-status frames.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)
