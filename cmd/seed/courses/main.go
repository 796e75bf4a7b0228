package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driveline/driveline/internal/config"
	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB.Database)
	repo := repository.NewMongoCourseRepository(db)

	now := time.Now().UTC()
	courses := []domain.Course{
		{
			Name:          "Beginner Package",
			Description:   "10 hours of practical lessons for first-time drivers, theory prep included",
			Price:         550,
			DurationHours: 10,
		},
		{
			Name:          "Standard Package",
			Description:   "20 hours of practical lessons covering urban traffic, highways and parking",
			Price:         990,
			DurationHours: 20,
		},
		{
			Name:          "Intensive Package",
			Description:   "30 hours over four weeks, aimed at a fast-track licence exam",
			Price:         1390,
			DurationHours: 30,
		},
		{
			Name:          "Refresher Course",
			Description:   "5 hours for licence holders returning to the road after a break",
			Price:         290,
			DurationHours: 5,
		},
		{
			Name:          "Motorway Confidence",
			Description:   "4 hours focused on motorway merging, lane discipline and overtaking",
			Price:         240,
			DurationHours: 4,
		},
	}

	seeded := 0
	for _, course := range courses {
		c := course
		c.IsActive = true
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := repo.Create(ctx, &c); err != nil {
			log.Printf("Failed to seed %q: %v", c.Name, err)
			continue
		}
		seeded++
		fmt.Printf("Seeded course: %s (%d hours)\n", c.Name, c.DurationHours)
	}

	fmt.Printf("Done. %d/%d courses seeded.\n", seeded, len(courses))
}
