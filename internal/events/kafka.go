package events

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strconv"

    "github.com/segmentio/kafka-go"
    "go.uber.org/zap"

    "github.com/iliyamo/show-reservation/internal/logger"
)

// KafkaPublisher writes events to one topic, keyed by show so all events of
// a show land on the same partition in order.
type KafkaPublisher struct {
    w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
    return &KafkaPublisher{w: &kafka.Writer{
        Addr:         kafka.TCP(brokers...),
        Topic:        topic,
        Balancer:     &kafka.Hash{},
        RequiredAcks: kafka.RequireAll,
    }}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    return p.w.WriteMessages(ctx, kafka.Message{
        Key:   []byte(strconv.FormatUint(ev.ShowID, 10)),
        Value: body,
        Headers: []kafka.Header{
            {Key: "type", Value: []byte(ev.Type)},
            {Key: "event_id", Value: []byte(ev.EventID)},
        },
    })
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// ConsumeKafka reads topic as member of groupID until ctx is cancelled.
// Offsets are committed after h returns; messages h rejects are copied to
// "<topic>-dlq" with the failure reason in a header before being committed.
func ConsumeKafka(ctx context.Context, brokers []string, topic, groupID string, h Handler) error {
    r := kafka.NewReader(kafka.ReaderConfig{
        Brokers:  brokers,
        Topic:    topic,
        GroupID:  groupID,
        MinBytes: 1,
        MaxBytes: 10e6,
    })
    defer r.Close()

    dlq := &kafka.Writer{Addr: kafka.TCP(brokers...), Topic: topic + "-dlq", Balancer: &kafka.LeastBytes{}}
    defer dlq.Close()

    log := logger.FromContext(ctx).With(zap.String("topic", topic))
    for {
        m, err := r.FetchMessage(ctx)
        if err != nil {
            if ctx.Err() != nil || errors.Is(err, context.Canceled) {
                return ctx.Err()
            }
            log.Warn("fetch message failed", zap.Error(err))
            continue
        }
        if err := dispatch(ctx, m.Value, h); err != nil {
            log.Error("handle message failed", zap.Error(err), zap.Int64("offset", m.Offset))
            if werr := dlq.WriteMessages(ctx, kafka.Message{
                Key:     m.Key,
                Value:   m.Value,
                Headers: []kafka.Header{{Key: "error_reason", Value: []byte(err.Error())}},
            }); werr != nil {
                log.Error("dead letter write failed", zap.Error(werr))
            }
        }
        if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
            log.Warn("commit offset failed", zap.Error(err))
        }
    }
}
