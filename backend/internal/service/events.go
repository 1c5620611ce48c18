package service

import (
	"context"
	"fmt"

	"github.com/threed-dev/threed/shared/domain"
)

const (
	TopicNewThread     = "newThread"
	TopicNewReply      = "newReply"
	TopicNewThreadLike = "newThreadLike"
	TopicNewReplyLike  = "newReplyLike"
)

// EventCodec sends entity ids through NOTIFY and loads them back.
type EventCodec struct {
	repo Repository
}

func NewEventCodec(repo Repository) EventCodec {
	return EventCodec{repo: repo}
}

func (c EventCodec) Encode(topic string, payload any) (string, error) {
	switch p := payload.(type) {
	case domain.Thread:
		return p.Id, nil
	case domain.Reply:
		return p.Id, nil
	default:
		return "", fmt.Errorf("no encoding for %T on %s", payload, topic)
	}
}

func (c EventCodec) Decode(ctx context.Context, topic, key string) (any, error) {
	var (
		payload any
		found   bool
		err     error
	)
	switch topic {
	case TopicNewThread, TopicNewThreadLike:
		payload, found, err = c.repo.Thread(ctx, key)
	case TopicNewReply, TopicNewReplyLike:
		payload, found, err = c.repo.Reply(ctx, key)
	default:
		return nil, fmt.Errorf("unknown topic %s", topic)
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s %s vanished before delivery", topic, key)
	}
	return payload, nil
}
