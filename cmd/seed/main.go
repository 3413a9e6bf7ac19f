// Command seed resets the booking schema and loads sample data. Development
// helper only; production schema changes go through the SQL migrations.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/models"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer sqldb.Close()

	db := bun.NewDB(sqldb, pgdialect.New())
	ctx := context.Background()

	tables := []interface{}{
		(*models.Booking)(nil),
		(*models.OrderItem)(nil),
		(*models.Order)(nil),
		(*models.TicketType)(nil),
		(*models.Event)(nil),
	}

	// Drop children before parents
	for _, model := range tables {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			log.Fatalf("failed to drop table for %T: %v", model, err)
		}
	}

	// Create parents before children
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewCreateTable().Model(tables[i]).Exec(ctx); err != nil {
			log.Fatalf("failed to create table for %T: %v", tables[i], err)
		}
	}

	now := time.Now()
	event := models.Event{
		ID:         uuid.New().String(),
		Name:       "GopherCon 2026",
		StartTime:  now.Add(60 * 24 * time.Hour),
		StatusFlag: models.EventStatusOpen,
		CreatedBy:  "organizer-demo",
		CreatedAt:  now,
	}
	if _, err := db.NewInsert().Model(&event).Exec(ctx); err != nil {
		log.Fatalf("failed to seed event: %v", err)
	}

	types := []models.TicketType{
		{
			ID: uuid.New().String(), EventID: event.ID, Name: "General",
			UnitPriceCents: 5000, QuantityAvailable: 500, TotalCapacity: 500, CreatedAt: now,
		},
		{
			ID: uuid.New().String(), EventID: event.ID, Name: "VIP",
			UnitPriceCents: 15000, QuantityAvailable: 50, TotalCapacity: 50, CreatedAt: now,
		},
	}
	if _, err := db.NewInsert().Model(&types).Exec(ctx); err != nil {
		log.Fatalf("failed to seed ticket types: %v", err)
	}

	fmt.Printf("Seeded event %s with %d ticket types\n", event.ID, len(types))
}
