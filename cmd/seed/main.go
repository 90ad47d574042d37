// Command seed populates the database with demo exchange data.
package main

import (
	"flag"
	"log"

	"threadswap/internal/config"
	"threadswap/internal/database"
	"threadswap/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 12, "Number of members to create")
	itemsPerUser := flag.Int("items", 4, "Listings per member")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("fast", false, "Skip bcrypt hashing for faster dev seeding")
	randSeed := flag.Int64("seed", 0, "Fixed random seed (0 = time-based)")
	flag.Parse()

	log.Printf("seeding: %d users, %d items each, clean=%v", *numUsers, *itemsPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := seed.Run(db, seed.Options{
		NumUsers:     *numUsers,
		ItemsPerUser: *itemsPerUser,
		ShouldClean:  *shouldClean,
		SkipBcrypt:   *skipBcrypt,
		RandSeed:     *randSeed,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("done; all generated members use the password: password123")
}
