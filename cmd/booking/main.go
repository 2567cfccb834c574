package main

import (
	"slotbook/internal/bookings/events"
	bookinghandler "slotbook/internal/bookings/handler"
	"slotbook/internal/bookings/reaper"
	"slotbook/internal/bookings/repository"
	bookingservice "slotbook/internal/bookings/service"
	bookingvalidator "slotbook/internal/bookings/validator"
	doctorhandler "slotbook/internal/doctors/handler"
	doctorservice "slotbook/internal/doctors/service"
	doctorvalidator "slotbook/internal/doctors/validator"
	"slotbook/pkg/app"
	"slotbook/pkg/config"
	"slotbook/pkg/contracts"
	"slotbook/pkg/kafka"
	kafka_config "slotbook/pkg/kafka/config"
	kafka_middleware "slotbook/pkg/kafka/middleware"
)

const ServiceName = "booking"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Booking service")

	store := repository.Open(cfg)
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	publisher, closePublisher := initPublisher(cfg)
	defer closePublisher()

	bookings := bookingservice.NewBookingService(store, bookingvalidator.NewBookingValidator(cfg.Log), publisher, cfg)
	doctors := doctorservice.NewDoctorService(store, doctorvalidator.NewDoctorValidator(cfg.Log), cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(store,
		[]contracts.Handler{
			bookinghandler.NewBookingHandler(bookings, cfg.Log),
			doctorhandler.NewDoctorHandler(doctors, cfg.Log),
		},
		reaper.New(store, publisher, cfg),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) (events.Publisher, func()) {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Booking events disabled")
		return events.NopPublisher(), func() {}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.Topics.BookingEvents, kafkaCfg.Topics.DeadLetter, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	cfg.Log.Info("Publishing booking events", "topic", kafkaCfg.Topics.BookingEvents)
	return events.NewKafkaPublisher(producer, ServiceName), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close kafka producer", "error", err)
		}
	}
}
