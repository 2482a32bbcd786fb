package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// ErrPermanent marks a message that can never succeed; it is logged and committed.
var ErrPermanent = errors.New("kafka: permanent message failure")

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// Consumer drives a MessageHandler from a consumer group. Offsets are marked
// only after the handler succeeds or reports ErrPermanent.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("kafka consumer: handler required")
	}
	g, err := sarama.NewConsumerGroup(brokers, groupID, consumerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group %s: %w", groupID, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

// Run blocks until ctx ends or the group is closed. Returning from a claim with
// an error triggers a rebalance, after which the failed message is fetched again.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	gh := claimHandler{handler: c.handler, logger: c.logger}
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, topics, gh)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type claimHandler struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (h claimHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info("reservation feed assigned", "member", sess.MemberID(), "claims", sess.Claims())
	return nil
}

func (h claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), msg); err != nil {
			attrs := []any{"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err}
			if !errors.Is(err, ErrPermanent) {
				h.logger.Error("reservation event failed, will retry", attrs...)
				return err
			}
			h.logger.Warn("reservation event dropped", attrs...)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
