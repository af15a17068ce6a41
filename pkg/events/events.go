package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eckinger/uchomp/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	GroupMemberJoined = "group.member.joined"
	GroupMemberLeft   = "group.member.left"
	GroupExpiring     = "group.expiring"
)

// GroupMemberEvent is published when a user joins or leaves an order group.
type GroupMemberEvent struct {
	OrderID    int64     `json:"order_id"`
	Restaurant string    `json:"restaurant"`
	UserEmail  string    `json:"user_email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// GroupExpiringEvent is published once per group shortly before expiration.
type GroupExpiringEvent struct {
	OrderID      int64     `json:"order_id"`
	Restaurant   string    `json:"restaurant"`
	Expiration   time.Time `json:"expiration"`
	MemberEmails []string  `json:"member_emails"`
}
