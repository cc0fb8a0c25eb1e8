package events

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/show-reservation/internal/logger"
)

// DialTimeout bounds one connection attempt of the publisher.
const DialTimeout = 2 * time.Second

// redialAfter is how long the publisher fails fast after a failed dial.
const redialAfter = 5 * time.Second

// ErrBrokerUnavailable is returned without dialing while the publisher
// waits out redialAfter.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

// RabbitPublisher publishes events to a durable queue on the default
// exchange. The connection is opened lazily and reopened after a failure.
// A failed dial makes Publish fail fast for redialAfter instead of dialing
// on every call.
type RabbitPublisher struct {
    url   string
    queue string
    now   func() time.Time

    mu       sync.Mutex
    nextDial time.Time
    conn     *amqp.Connection
    ch   *amqp.Channel
}

func NewRabbitPublisher(url, queue string) *RabbitPublisher {
    return &RabbitPublisher{url: url, queue: queue, now: time.Now}
}

// channel returns an open channel, dialing when needed. Callers hold mu.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    if p.now().Before(p.nextDial) {
        return nil, ErrBrokerUnavailable
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(DialTimeout),
    })
    if err != nil {
        p.nextDial = p.now().Add(redialAfter)
        return nil, fmt.Errorf("rabbitmq dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("rabbitmq channel: %w", err)
    }
    // durable so messages survive broker restarts
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *RabbitPublisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
}

// Publish sends ev as a persistent JSON message.
func (p *RabbitPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    if err := ctx.Err(); err != nil {
        return err
    }
    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         ev.Type,
        Timestamp:    ev.OccurredAt,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        p.reset()
        return fmt.Errorf("rabbitmq publish: %w", err)
    }
    return nil
}

func (p *RabbitPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

// ConsumeRabbit declares queue and feeds every delivery to h until ctx is
// cancelled. Broken connections are redialed with exponential backoff
// capped at 30s. Messages h rejects are dropped rather than requeued so a
// poison message cannot spin the loop.
func ConsumeRabbit(ctx context.Context, url, queue string, h Handler) error {
    log := logger.FromContext(ctx).With(zap.String("queue", queue))
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("rabbitmq dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, queue, h)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, h Handler) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        return fmt.Errorf("set qos: %w", err)
    }
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := dispatch(ctx, d.Body, h); err != nil {
                logger.FromContext(ctx).Error("handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// dispatch decodes body and runs h on it.
func dispatch(ctx context.Context, body []byte, h Handler) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    return h(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
