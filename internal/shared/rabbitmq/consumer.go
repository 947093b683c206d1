package rabbitmq

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliveryHandler processes one delivery and is responsible for ack/nack.
type DeliveryHandler func(ctx context.Context, d amqp.Delivery)

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// ConsumeLoop continuously (re)creates a channel and consumes the named durable
// queue until ctx is cancelled. This is the long-lived listener loop that keeps
// a service's subscription alive for its whole lifetime; channel loss triggers
// a resubscribe with exponential backoff.
func (client *Client) ConsumeLoop(ctx context.Context, queue string, prefetch int, handle DeliveryHandler) {
	backoff := retryBaseDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// acquire a fresh channel with QoS
		ch, err := client.NewConsumerChannel(prefetch)
		if err != nil {
			client.logger.Error(ctx, "rabbitmq_channel_open_failed", "Failed to open consumer channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		// reset backoff on successful channel creation
		backoff = retryBaseDelay

		// manual ack; the handler decides ack/nack per message
		deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			client.logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming "+queue, err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		// watch for channel close to trigger a re-open
		closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	consumption:
		for {
			select {
			case <-ctx.Done():
				_ = ch.Close()
				return

			case amqpErr := <-closed:
				if amqpErr != nil {
					client.logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", amqpErr)
				} else {
					client.logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", errors.New("unknown channel close"))
				}
				break consumption

			case d, ok := <-deliveries:
				if !ok {
					client.logger.Error(ctx, "rabbitmq_deliveries_closed", "Deliveries channel closed", errors.New("deliveries channel closed"))
					break consumption
				}
				handle(ctx, d)
			}
		}

		// small delay before attempting to recreate channel (avoid hot loop)
		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, retryMaxDelay)
	}
}

// sleepWithContext sleeps for the given duration or returns early if ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential growth capped at max.
func nextBackoff(curr, cap time.Duration) time.Duration {
	n := curr * 2
	if n > cap {
		return cap
	}
	return n
}
