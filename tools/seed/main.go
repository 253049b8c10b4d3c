package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheuslc/horacerta/libs/db"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	name         string
	email        string
	password     string
	provider     bool
	receptionist bool
	admin        bool
}

// Development fixtures: one of each capability plus a plain client.
var seedUsers = []seedUser{
	{name: "Root", email: "root@horacerta.local", password: "root", admin: true},
	{name: "Front Desk", email: "desk@horacerta.local", password: "desk", receptionist: true},
	{name: "Carla Mendes", email: "carla@horacerta.local", password: "carla", provider: true},
	{name: "Jonas Dias", email: "jonas@horacerta.local", password: "jonas", provider: true},
	{name: "Ana Souza", email: "ana@horacerta.local", password: "ana"},
}

func main() {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()

	for _, u := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password for %s: %v", u.email, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO users (id, name, email, password_hash, provider, receptionist, admin)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (email) DO NOTHING
		`, uuid.NewString(), u.name, u.email, string(hash), u.provider, u.receptionist, u.admin)
		if err != nil {
			log.Fatalf("insert %s: %v", u.email, err)
		}
		log.Printf("seeded %s", u.email)
	}
}
