package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/jmarins/boat-tour-reservation/internal/config"
	"github.com/jmarins/boat-tour-reservation/internal/database"
	"github.com/jmarins/boat-tour-reservation/internal/handler"
	"github.com/jmarins/boat-tour-reservation/internal/queue"
	"github.com/jmarins/boat-tour-reservation/internal/repository"
	"github.com/jmarins/boat-tour-reservation/internal/router"
	"github.com/jmarins/boat-tour-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unavailable; features degrade

	boats := repository.NewBoatRepo(db)
	resv := repository.NewReservationRepo(db)
	payments := repository.NewPaymentRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	var events service.EventSink
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
		go queue.StartConsumer(cfg.AMQPURL)
	}

	groups := service.NewGroupCoordinator(db, boats, resv)
	alloc := service.NewAllocationService(db, boats, resv, payments, groups, events)

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens),
		Public:  handler.NewPublicHandler(boats, alloc),
		Booking: handler.NewBookingHandler(alloc, resv, payments),
		Staff:   handler.NewStaffHandler(boats, resv, payments, alloc),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
