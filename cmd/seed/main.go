package main

import (
	"context"
	"fmt"
	"log"

	"huddle/internal/database"
	"huddle/internal/domain"
	"huddle/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// Seeds a local database with demo accounts and an established friendship,
// for poking at the API and realtime channel by hand.
func main() {
	db, err := database.Connect("huddle.db")
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.RefreshToken{},
		&domain.FriendRequest{},
	); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM friend_requests")
	db.Exec("DELETE FROM refresh_tokens")
	db.Exec("DELETE FROM accounts")

	hash, err := bcrypt.GenerateFromPassword([]byte("hello123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}

	accounts := []*domain.Account{
		{Username: "alice", Email: "alice@example.com", PasswordHash: string(hash)},
		{Username: "bob", Email: "bob@example.com", PasswordHash: string(hash)},
		{Username: "carol", Email: "carol@example.com", PasswordHash: string(hash)},
	}
	for _, a := range accounts {
		if err := db.Create(a).Error; err != nil {
			log.Fatal("seed account failed:", err)
		}
		fmt.Printf("created account %s (id=%d, password hello123)\n", a.Username, a.ID)
	}

	friendRepo := repository.NewFriendRepository(db)
	ctx := context.Background()

	req, err := friendRepo.CreateRequest(ctx, accounts[0].ID, accounts[1].ID)
	if err != nil {
		log.Fatal("seed friend request failed:", err)
	}
	if _, err := friendRepo.Respond(ctx, req.ID, domain.FriendRequestAccepted); err != nil {
		log.Fatal("seed friend accept failed:", err)
	}
	if _, err := friendRepo.CreateRequest(ctx, accounts[2].ID, accounts[0].ID); err != nil {
		log.Fatal("seed pending request failed:", err)
	}

	log.Println("Seed complete: alice<->bob friends, carol->alice pending")
}
