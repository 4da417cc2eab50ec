package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/roomdesk/room-booking-api/internal/booking"
	"github.com/roomdesk/room-booking-api/internal/config"
	"github.com/roomdesk/room-booking-api/internal/database"
	"github.com/roomdesk/room-booking-api/internal/handler"
	"github.com/roomdesk/room-booking-api/internal/queue"
	"github.com/roomdesk/room-booking-api/internal/repository"
	"github.com/roomdesk/room-booking-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Nil client disables rate limiting and response caching.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	bookings := repository.NewBookingRepo(db)
	rooms := repository.NewRoomRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	resolver := booking.NewResolver(bookings, rooms, users)

	queue.StartConsumers()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, rdb, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Users:    handler.NewUserHandler(cfg, users, tokens),
		Rooms:    handler.NewRoomHandler(rooms),
		Bookings: handler.NewBookingHandler(resolver, cfg.Policy(), bookings, rooms, users),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
