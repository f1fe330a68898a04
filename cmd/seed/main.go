package main

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	jwtsvc "hotelbooking/internal/pkg/jwt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	// Child tables first to satisfy foreign keys.
	log.Println("Cleaning old data...")
	for _, table := range []string{
		"notifications", "payment_events", "room_nights", "room_reservations",
		"bookings", "discounts", "reviews", "rooms", "hotels", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("clean %s: %v", table, err)
		}
	}

	// ================== USERS ==================
	log.Println("Creating users...")
	guests := make([]domain.User, 0, 3)
	for i, email := range []string{"alice@example.com", "bob@example.com", "carol@example.com"} {
		hash, err := bcrypt.GenerateFromPassword([]byte("guest123"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal(err)
		}
		u := domain.User{
			Email:        email,
			PasswordHash: string(hash),
			Role:         domain.RoleGuest,
			Name:         fmt.Sprintf("Guest %d", i+1),
		}
		if err := db.Create(&u).Error; err != nil {
			log.Fatal(err)
		}
		guests = append(guests, u)
	}

	// ================== HOTELS ==================
	log.Println("Creating hotels and rooms...")
	hotels := []domain.Hotel{
		{Name: "Seaside Resort", City: "Nice", Address: "12 Promenade des Anglais", NightlyRate: decimal.NewFromInt(100), Currency: "usd"},
		{Name: "Alpine Lodge", City: "Zermatt", Address: "3 Bahnhofstrasse", NightlyRate: decimal.RequireFromString("149.90"), Currency: "usd"},
	}
	for i := range hotels {
		for floor := 1; floor <= 2; floor++ {
			for n := 1; n <= 4; n++ {
				hotels[i].Rooms = append(hotels[i].Rooms, domain.Room{
					RoomNumber: fmt.Sprintf("%d%02d", floor, n),
					Capacity:   2 + n%2,
				})
			}
		}
		if err := db.Create(&hotels[i]).Error; err != nil {
			log.Fatal(err)
		}
	}

	// ================== REVIEWS ==================
	for i, g := range guests {
		db.Create(&domain.Review{HotelID: hotels[0].ID, UserID: g.ID, Rating: 3 + i%3, Comment: "Great view"})
	}

	// ================== DISCOUNTS ==================
	log.Println("Creating discounts...")
	today := domain.DateOf(time.Now())
	discounts := []domain.Discount{
		{ID: "SUMMER25", HotelID: hotels[0].ID, Percentage: decimal.NewFromInt(25), ExpireDate: today.AddDate(0, 3, 0)},
		{ID: "LASTDAY10", HotelID: hotels[0].ID, Percentage: decimal.NewFromInt(10), ExpireDate: today},
		{ID: "EXPIRED50", HotelID: hotels[0].ID, Percentage: decimal.NewFromInt(50), ExpireDate: today.AddDate(0, 0, -1)},
		{ID: "ALPINE15", HotelID: hotels[1].ID, Percentage: decimal.NewFromInt(15), ExpireDate: today.AddDate(0, 1, 0)},
	}
	for i := range discounts {
		if err := db.Create(&discounts[i]).Error; err != nil {
			log.Fatal(err)
		}
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	token, err := j.GenerateToken(guests[0].ID, string(domain.RoleGuest))
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Seed completed!")
	log.Printf("Hotels: %s (id=%d), %s (id=%d); rooms 101-104, 201-204", hotels[0].Name, hotels[0].ID, hotels[1].Name, hotels[1].ID)
	log.Println("Discounts: SUMMER25, LASTDAY10 (expires today), EXPIRED50, ALPINE15")
	log.Println("Guests: alice@example.com, bob@example.com, carol@example.com / guest123")
	log.Printf("Dev token for %s (valid %s):\n%s", guests[0].Email, cfg.JWTTTL, token)
}
