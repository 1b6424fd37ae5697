package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OffloadExchange = "media.offload.exchange"

	// MediaCreatedQueue carries new media records that need uploading.
	MediaCreatedQueue      = "media.created"
	MediaCreatedRoutingKey = "media.created"

	// VariantsGeneratedQueue carries the downstream signal that all size
	// variants for a record exist, which unlocks local deletion.
	VariantsGeneratedQueue      = "media.variants.generated"
	VariantsGeneratedRoutingKey = "media.variants.generated"

	// MediaDestroyedQueue carries record destruction events for remote cleanup.
	MediaDestroyedQueue      = "media.destroyed"
	MediaDestroyedRoutingKey = "media.destroyed"
)

// MediaCreatedMessage announces a locally stored media file ready for upload.
type MediaCreatedMessage struct {
	MediaID   string `json:"media_id"`
	LocalPath string `json:"local_path"`
	RemoteKey string `json:"remote_key"` // optional; derived from local path when empty
	Timestamp int64  `json:"timestamp"`
}

// VariantsGeneratedMessage announces that derivative generation finished
// for a record. VariantPaths lists the derivative local files.
type VariantsGeneratedMessage struct {
	MediaID      string   `json:"media_id"`
	VariantPaths []string `json:"variant_paths"`
	Timestamp    int64    `json:"timestamp"`
}

// MediaDestroyedMessage announces that the owning record was destroyed.
// CDNURL is carried in the message because the row is already gone.
type MediaDestroyedMessage struct {
	MediaID   string `json:"media_id"`
	CDNURL    string `json:"cdn_url"`
	Timestamp int64  `json:"timestamp"`
}

// ChannelPublisher is the slice of amqp.Channel the produce layer writes
// through.
type ChannelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// OffloadProduceService publishes offload lifecycle events.
type OffloadProduceService struct {
	channel ChannelPublisher
}

// NewOffloadProduceService wraps an existing publisher. The exchange and
// queues must already be declared.
func NewOffloadProduceService(channel ChannelPublisher) *OffloadProduceService {
	return &OffloadProduceService{channel: channel}
}

func InitOffloadProduceService(channel *amqp.Channel) *OffloadProduceService {
	service := &OffloadProduceService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		OffloadExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Offload exchange: " + err.Error())
	}

	queues := []struct {
		name       string
		routingKey string
	}{
		{MediaCreatedQueue, MediaCreatedRoutingKey},
		{VariantsGeneratedQueue, VariantsGeneratedRoutingKey},
		{MediaDestroyedQueue, MediaDestroyedRoutingKey},
	}

	for _, q := range queues {
		_, err = channel.QueueDeclare(
			q.name,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			panic("Failed to declare queue " + q.name + ": " + err.Error())
		}

		err = channel.QueueBind(
			q.name,
			q.routingKey,
			OffloadExchange,
			false,
			nil,
		)
		if err != nil {
			panic("Failed to bind queue " + q.name + ": " + err.Error())
		}
	}

	return service
}

func (s *OffloadProduceService) PublishMediaCreated(ctx context.Context, msg MediaCreatedMessage) error {
	msg.Timestamp = time.Now().Unix()
	return s.publish(ctx, MediaCreatedRoutingKey, msg)
}

func (s *OffloadProduceService) PublishVariantsGenerated(ctx context.Context, msg VariantsGeneratedMessage) error {
	msg.Timestamp = time.Now().Unix()
	return s.publish(ctx, VariantsGeneratedRoutingKey, msg)
}

func (s *OffloadProduceService) PublishMediaDestroyed(ctx context.Context, msg MediaDestroyedMessage) error {
	msg.Timestamp = time.Now().Unix()
	return s.publish(ctx, MediaDestroyedRoutingKey, msg)
}

func (s *OffloadProduceService) publish(ctx context.Context, routingKey string, msg interface{}) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		OffloadExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
