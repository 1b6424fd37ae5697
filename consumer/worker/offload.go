package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tnqbao/gau-media-offload/infra"
	"github.com/tnqbao/gau-media-offload/infra/produce"
	providerPkg "github.com/tnqbao/gau-media-offload/provider"
	"github.com/tnqbao/gau-media-offload/repository"
	"gorm.io/gorm"
)

// OffloadConsumer wires the offload lifecycle events to the provider's
// handlers: media.created drives uploads, media.variants.generated drives
// the deferred deletion phase, media.destroyed drives remote cleanup.
type OffloadConsumer struct {
	channel    *amqp.Channel
	infra      *infra.Infra
	repository *repository.Repository
	provider   *providerPkg.Provider
}

func NewOffloadConsumer(channel *amqp.Channel, infra *infra.Infra, repo *repository.Repository, provider *providerPkg.Provider) *OffloadConsumer {
	return &OffloadConsumer{
		channel:    channel,
		infra:      infra,
		repository: repo,
		provider:   provider,
	}
}

func (c *OffloadConsumer) Start(ctx context.Context) error {
	consumers := []struct {
		queue   string
		handler func(ctx context.Context, msg amqp.Delivery)
	}{
		{produce.MediaCreatedQueue, c.handleMediaCreated},
		{produce.VariantsGeneratedQueue, c.handleVariantsGenerated},
		{produce.MediaDestroyedQueue, c.handleMediaDestroyed},
	}

	for _, consumer := range consumers {
		if err := c.startQueueConsumer(ctx, consumer.queue, consumer.handler); err != nil {
			return fmt.Errorf("failed to start consumer for %s: %w", consumer.queue, err)
		}
	}

	return nil
}

func (c *OffloadConsumer) startQueueConsumer(ctx context.Context, queue string, handler func(ctx context.Context, msg amqp.Delivery)) error {
	msgs, err := c.channel.Consume(
		queue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Offload Consumer] Started listening on queue: %s", queue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Offload Consumer] Shutting down consumer for %s...", queue)
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Offload Consumer] Channel closed for %s", queue)
					return
				}
				handler(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *OffloadConsumer) handleMediaCreated(ctx context.Context, msg amqp.Delivery) {
	var payload produce.MediaCreatedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Consumer - Media Created] Failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}

	mediaID, err := uuid.Parse(payload.MediaID)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Consumer - Media Created] Invalid media ID")
		_ = msg.Nack(false, false)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Offload Consumer - Media Created] Uploading media %s", mediaID)

	// The HTTP request context that produced this event is long gone;
	// transfers run against a background context bounded by the adaptive
	// timeout.
	bgCtx := context.Background()

	_, result, err := c.provider.OffloadService.OnMediaCreated(bgCtx, mediaID, payload.RemoteKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.infra.Logger.WarningWithContextf(ctx, "[Offload Consumer - Media Created] Media %s no longer exists", mediaID)
			_ = msg.Nack(false, false)
			return
		}
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Consumer - Media Created] Failed to load media %s", mediaID)
		_ = msg.Nack(false, true) // Requeue
		return
	}

	// A classified transfer failure is recorded on the record and not
	// retried here; retry scheduling belongs to an external collaborator.
	if !result.Succeeded() {
		c.infra.Logger.WarningWithContextf(ctx, "[Offload Consumer - Media Created] Upload of media %s failed: %s", mediaID, result.Status())
	}

	_ = msg.Ack(false)
}

func (c *OffloadConsumer) handleVariantsGenerated(ctx context.Context, msg amqp.Delivery) {
	var payload produce.VariantsGeneratedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Consumer - Variants Generated] Failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}

	mediaID, err := uuid.Parse(payload.MediaID)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Consumer - Variants Generated] Invalid media ID")
		_ = msg.Nack(false, false)
		return
	}

	bgCtx := context.Background()

	if err := c.provider.OffloadService.OnVariantsGenerated(bgCtx, mediaID, payload.VariantPaths); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.infra.Logger.WarningWithContextf(ctx, "[Offload Consumer - Variants Generated] Media %s no longer exists", mediaID)
			_ = msg.Nack(false, false)
			return
		}
		// The record stays PENDING_OFFLOAD; a future variants event (or a
		// manual reconciliation pass) picks it up again.
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Consumer - Variants Generated] Deferred deletion for media %s did not complete", mediaID)
		_ = msg.Ack(false)
		return
	}

	_ = msg.Ack(false)
}

func (c *OffloadConsumer) handleMediaDestroyed(ctx context.Context, msg amqp.Delivery) {
	var payload produce.MediaDestroyedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Consumer - Media Destroyed] Failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}

	mediaID, err := uuid.Parse(payload.MediaID)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Consumer - Media Destroyed] Invalid media ID")
		_ = msg.Nack(false, false)
		return
	}

	bgCtx := context.Background()

	// Best-effort: a failed remote delete never blocks destruction, it just
	// leaves an orphaned remote object behind.
	outcome := c.provider.OffloadService.OnMediaDestroyed(bgCtx, mediaID, payload.CDNURL)
	if outcome.Attempted && !outcome.Succeeded {
		c.infra.Logger.WarningWithContextf(ctx, "[Offload Consumer - Media Destroyed] Remote cleanup for media %s failed: %s", mediaID, outcome.Status)
	}

	_ = msg.Ack(false)
}
