package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"slotbook/internal/bookings/repository"
	"slotbook/internal/doctors/ingest"
	doctorservice "slotbook/internal/doctors/service"
	doctorvalidator "slotbook/internal/doctors/validator"
	"slotbook/pkg/config"
	"slotbook/pkg/kafka"
	kafka_config "slotbook/pkg/kafka/config"
	kafka_middleware "slotbook/pkg/kafka/middleware"
)

const ServiceName = "slot-ingest"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting slot ingest consumer")

	store := repository.Open(cfg)
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	doctors := doctorservice.NewDoctorService(store, doctorvalidator.NewDoctorValidator(cfg.Log), cfg)
	handler := ingest.NewSlotIngest(doctors, cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, kafkaCfg.Topics.SlotCommands, kafkaCfg.Topics.SlotIngestGroup, kafkaCfg.Topics.DeadLetter, handler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create kafka consumer", "error", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close kafka consumer", "error", err)
		}
	}()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Consuming slot commands", "topic", kafkaCfg.Topics.SlotCommands, "group", kafkaCfg.Topics.SlotIngestGroup)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
		return
	}
	cfg.Log.Info("Slot ingest consumer stopped")
}
