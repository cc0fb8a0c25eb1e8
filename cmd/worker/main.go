// Command worker consumes reservation events from the configured broker and
// appends one line per event to EVENT_LOG_PATH.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/show-reservation/internal/config"
	"github.com/iliyamo/show-reservation/internal/events"
	"github.com/iliyamo/show-reservation/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	closeLog, err := logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()
	log := logger.Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := events.NewLogSink(cfg.EventLogPath)
	log.Info("worker starting", zap.String("broker", cfg.EventBroker), zap.String("log_path", cfg.EventLogPath))

	switch cfg.EventBroker {
	case config.BrokerRabbitMQ:
		err = events.ConsumeRabbit(ctx, cfg.RabbitMQURL, cfg.EventQueue, sink.Handle)
	case config.BrokerKafka:
		err = events.ConsumeKafka(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, sink.Handle)
	default:
		log.Warn("EVENT_BROKER is none; nothing to consume")
		<-ctx.Done()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("consumer stopped", zap.Error(err))
	}
	log.Info("worker stopped")
}
