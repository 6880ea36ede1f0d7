package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Topics consumed by the rest of the platform.
const (
	TopicUserFollowed   = "USER_FOLLOWED"
	TopicUserUnfollowed = "USER_UNFOLLOWED"
	TopicDeadLetter     = "DEAD_LETTER_QUEUE"
)

// FollowEvent is the payload of USER_FOLLOWED / USER_UNFOLLOWED. It carries
// both the internal ids and the auth-service identities so consumers never
// need a lookup back into this service.
type FollowEvent struct {
	FollowerID      string    `json:"followerId"`
	FollowerAuthID  string    `json:"followerAuthId"`
	FollowingID     string    `json:"followingId"`
	FollowingAuthID string    `json:"followingAuthId"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// DeadLetter is the payload of DEAD_LETTER_QUEUE entries: the background
// phase has no HTTP response left to report through, so failed operations
// land here for reconciliation.
type DeadLetter struct {
	Operation   string    `json:"operation"`
	FollowerID  string    `json:"followerId"`
	FollowingID string    `json:"followingId"`
	Error       string    `json:"error"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// FollowDedupKey is deterministic per ordered pair so brokers/consumers can
// deduplicate redelivered USER_FOLLOWED events.
func FollowDedupKey(followerID, followingID string) string {
	return fmt.Sprintf("follow-%s-%s", followerID, followingID)
}

// Publisher is an at-least-once event sink.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds a producer shared across topics; the topic is
// set per message.
func NewKafkaPublisher(brokers []string) Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return &kafkaPublisher{writer: w}
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: topic,
		Value: value,
		Time:  time.Now(),
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *kafkaPublisher) Close() error { return p.writer.Close() }
