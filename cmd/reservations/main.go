package main

import (
	"github.com/joho/godotenv"

	"stayloft/internal/notify"
	"stayloft/internal/payments"
	"stayloft/internal/reservations/handler"
	"stayloft/internal/reservations/repository"
	"stayloft/internal/reservations/service"
	"stayloft/internal/reservations/validator"
	"stayloft/pkg/app"
	"stayloft/pkg/config"
	"stayloft/pkg/kafka"
	kafka_config "stayloft/pkg/kafka/config"
	kafka_middleware "stayloft/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	// Optional in production; local runs keep their env in a .env file.
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")

	producer, err := kafka.NewProducer(kafka_config.Load(), cfg.NotificationsTopic, cfg.NotificationsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware())
	producer.Use(kafka_middleware.MetricsProducerMiddleware())
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()

	bookingService, reconService := initServices(cfg, producer)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg,
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewAdminHandler(bookingService, cfg),
		handler.NewWebhookHandler(
			payments.NewVerifier(cfg.GatewayWebhookSecret, cfg.GatewaySigTolerance),
			reconService,
			cfg.Log,
		),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, producer *kafka.Producer) (service.BookingService, service.ReconciliationService) {
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	guestRepo := repository.NewMongoGuestRepository(cfg)
	roomRepo := repository.NewMongoRoomRepository(cfg)
	lockRepo := repository.NewSlotLockRepository(cfg)

	mailer := notify.NewKafkaMailer(producer, cfg.AdminNotifyEmail, cfg.Log)
	gateway := payments.NewClient(cfg)
	bookingValidator := validator.NewBookingValidator(cfg.Log)

	bookingService := service.NewBookingService(
		reservationRepo,
		guestRepo,
		roomRepo,
		lockRepo,
		gateway,
		mailer,
		bookingValidator,
		cfg,
	)
	reconService := service.NewReconciliationService(
		reservationRepo,
		guestRepo,
		roomRepo,
		mailer,
		cfg,
	)

	cfg.Log.Info("Reservation services initialized",
		"database", cfg.MongoDatabaseName,
		"gateway", cfg.GatewayBaseURL,
		"slot_lock_ttl", cfg.SlotLockTTL,
	)
	return bookingService, reconService
}
