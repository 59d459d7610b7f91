package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"huddle/internal/config"
	"huddle/internal/database"
	"huddle/internal/domain"
	"huddle/internal/middleware"
	"huddle/internal/modules/friend"
	"huddle/internal/modules/realtime"
	"huddle/internal/modules/session"
	jwtsvc "huddle/internal/pkg/jwt"
	"huddle/internal/pkg/validator"
	"huddle/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	validator.RegisterCustom()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.RefreshToken{},
		&domain.FriendRequest{},
	); err != nil {
		log.Fatal(err)
	}

	accountRepo := repository.NewAccountRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	friendRepo := repository.NewFriendRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL)

	tokenStore := session.NewTokenStore(refreshRepo, cfg.RefreshTokenPepper, cfg.RefreshTTL)
	sessionService := session.NewService(accountRepo, tokenStore, j)
	sessionHandler := session.NewHandler(sessionService, cfg.CookieSecure, cfg.CookieSameSite, cfg.CookiePath, cfg.RefreshTTL)

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry)
	wsHandler := realtime.NewWSHandler(registry, dispatcher, j, cfg.WSSendBuffer)

	friendService := friend.NewService(friendRepo, accountRepo, dispatcher)
	friendHandler := friend.NewHandler(friendService)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public
		sessionHandler.RegisterPublicRoutes(v1)
		wsHandler.RegisterRoutes(v1)

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			sessionHandler.RegisterProtectedRoutes(protected)
			friendHandler.RegisterRoutes(protected)
		}
	}

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
