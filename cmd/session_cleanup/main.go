package main

import (
	"context"
	"log"
	"os"
	"time"

	"huddle/internal/database"
	"huddle/internal/domain"
	"huddle/internal/repository"
)

// Purges refresh tokens that can never be redeemed again: expired ones, and
// revoked ones older than 30 days (kept a while for reuse forensics).
func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	refreshRepo := repository.NewRefreshTokenRepository(db)

	expired, err := refreshRepo.DeleteExpired(context.Background())
	if err != nil {
		log.Fatalf("cleanup expired refresh_tokens failed: %v", err)
	}

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	res := db.Where("revoked_at IS NOT NULL AND revoked_at < ?", cutoff).Delete(&domain.RefreshToken{})
	if res.Error != nil {
		log.Fatalf("cleanup revoked refresh_tokens failed: %v", res.Error)
	}

	log.Printf("session cleanup completed: expired=%d revoked=%d", expired, res.RowsAffected)
}
