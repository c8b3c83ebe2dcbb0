// Package events publishes post-commit change notifications over Redis
// pub/sub. Publishing is fire-and-forget: a failed publish is logged and
// retried once, and never affects the committed mutation.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atelierhq/portal-backend/internal/domain"
)

const (
	// Channel per resource type: portal:events:{resource}
	channelPrefix = "portal:events:"
	publishTO     = 2 * time.Second
)

type Event struct {
	Resource string    `json:"resource"`
	Action   string    `json:"action"`
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
}

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Channel returns the pub/sub channel for a resource type.
func Channel(rt domain.ResourceType) string {
	return channelPrefix + rt.String()
}

// EntityChanged satisfies gateway.Publisher.
func (p *Publisher) EntityChanged(ctx context.Context, rt domain.ResourceType, action domain.Action, id string) {
	ev := Event{
		Resource: rt.String(),
		Action:   action.String(),
		ID:       id,
		At:       time.Now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[warn] events: marshal %s/%s: %v", ev.Resource, ev.ID, err)
		return
	}

	// The mutation is already committed; detach from the request context
	// so a cancelled request does not drop the event.
	pctx, cancel := context.WithTimeout(context.Background(), publishTO)
	defer cancel()

	ch := Channel(rt)
	if err := p.client.Publish(pctx, ch, payload).Err(); err != nil {
		log.Printf("[warn] events: publish %s: %v (retrying)", ch, err)
		if err := p.client.Publish(pctx, ch, payload).Err(); err != nil {
			log.Printf("[error] events: publish %s: %v (dropped)", ch, err)
		}
	}
}
