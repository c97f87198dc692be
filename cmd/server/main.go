package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/config"
	"github.com/aulanet/aulanet-backend/internal/database"
	"github.com/aulanet/aulanet-backend/internal/handler"
	"github.com/aulanet/aulanet-backend/internal/queue"
	"github.com/aulanet/aulanet-backend/internal/repository"
	"github.com/aulanet/aulanet-backend/internal/router"
	notifier "github.com/aulanet/aulanet-backend/internal/service"
	"github.com/aulanet/aulanet-backend/internal/ws"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	users := repository.NewUserRepo(db)

	// Redis backs revocation and rate limiting.  Without it the in-memory
	// revocation store keeps a single instance correct; running multiple
	// instances that way would let a token revoked on one node replay on
	// another.
	rdb := config.NewRedisClient()
	var revoked auth.RevocationStore
	if rdb != nil {
		revoked = auth.NewRedisRevocationStore(rdb)
	} else {
		log.Printf("redis unavailable: using in-memory revocation store, rate limiting disabled")
		revoked = auth.NewMemoryRevocationStore()
	}

	cm := &auth.CookieManager{
		Secret:         cfg.JWTSecret,
		Secure:         cfg.Production(),
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
	}
	slide := auth.SlideOptions{ThresholdPct: cfg.SlideThresholdPct, AccessMins: cfg.AccessTTLMin}

	rooms := ws.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rooms.RunHeartbeat(ctx, cfg.HeartbeatInterval)
	go queue.StartNotificationConsumer(ctx, rooms)

	gateway := &ws.Gateway{
		Secret:  cfg.JWTSecret,
		Users:   users,
		Revoked: revoked,
		Rooms:   rooms,
	}

	authHandler := handler.NewAuthHandler(cm, users, revoked)
	tokenHandler := handler.NewTokenHandler(cm, users, revoked)
	notifyHandler := handler.NewNotifyHandler(notifier.Publish)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, tokenHandler, notifyHandler, cm, revoked, rdb, slide)
	router.RegisterRealtime(e, gateway)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
