package worker

import (
	"encoding/json"

	"github.com/eckinger/uchomp/internal/mailer"
	"github.com/eckinger/uchomp/pkg/events"
	"github.com/eckinger/uchomp/pkg/logger"
)

// Notifier consumes group lifecycle events and turns them into emails.
// Everything here is best-effort: a failed send is logged and dropped.
type Notifier struct {
	bus    events.EventBus
	mailer mailer.Service
}

func NewNotifier(bus events.EventBus, mailer mailer.Service) *Notifier {
	return &Notifier{bus: bus, mailer: mailer}
}

// Start registers queue subscriptions so only one worker instance handles
// each event.
func (n *Notifier) Start() error {
	const queue = "uchomp-notify"

	if err := n.bus.QueueSubscribe(events.GroupMemberJoined, queue, n.handleMemberEvent); err != nil {
		return err
	}
	if err := n.bus.QueueSubscribe(events.GroupMemberLeft, queue, n.handleMemberEvent); err != nil {
		return err
	}
	return n.bus.QueueSubscribe(events.GroupExpiring, queue, n.handleExpiring)
}

func (n *Notifier) handleMemberEvent(msg *events.Message) {
	var event events.GroupMemberEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to decode group member event", "error", err, "subject", msg.Subject)
		return
	}

	var err error
	switch msg.Subject {
	case events.GroupMemberJoined:
		err = n.mailer.SendJoinNotification(event.UserEmail, event.Restaurant)
	case events.GroupMemberLeft:
		err = n.mailer.SendLeaveNotification(event.UserEmail, event.Restaurant)
	}
	if err != nil {
		logger.Error("Failed to send membership email",
			"error", err,
			"subject", msg.Subject,
			"order_id", event.OrderID,
		)
	}
}

func (n *Notifier) handleExpiring(msg *events.Message) {
	var event events.GroupExpiringEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to decode group expiring event", "error", err)
		return
	}

	for _, email := range event.MemberEmails {
		if err := n.mailer.SendExpirationNotification(email, event.Restaurant, event.Expiration); err != nil {
			logger.Error("Failed to send expiration email",
				"error", err,
				"order_id", event.OrderID,
				"email", email,
			)
		}
	}
}
