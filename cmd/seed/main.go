package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/profile-service/config"
	"github.com/d60-Lab/profile-service/internal/model"
	"github.com/d60-Lab/profile-service/internal/repository"
	"github.com/d60-Lab/profile-service/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Seeds N users plus follow edges onto one "celebrity" profile for local
// load testing. Tune with N and PAGE env vars.
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	followRepo := repository.NewFollowRepository(db)
	ctx := context.Background()

	N := 10000
	if s := os.Getenv("N"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			N = n
		}
	}

	celeb := model.User{ID: "u0", AuthUserID: "auth-u0", Username: "u0", DisplayName: "Celebrity"}
	_ = db.Where("id = ?", celeb.ID).FirstOrCreate(&celeb).Error

	users := make([]model.User, N)
	batch := 1000
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		users[i] = model.User{ID: id, AuthUserID: "auth-" + id, Username: "u_" + id[:8], DisplayName: "user " + id[:8]}
		if (i+1)%batch == 0 {
			sub := users[i+1-batch : i+1]
			_ = db.Create(&sub).Error
		}
	}
	if N%batch != 0 {
		sub := users[N-N%batch:]
		_ = db.Create(&sub).Error
	}

	t0 := time.Now()
	for i := 0; i < N; i++ {
		_ = must(followRepo.CreateEdge(ctx, users[i].ID, celeb.ID))
	}
	fmt.Printf("seeded %d users and %d edges in %v\n", N+1, N, time.Since(t0))

	_, total, _ := followRepo.ListFollowers(ctx, celeb.ID, 0, 1)
	fmt.Printf("celebrity followers: %d\n", total)
}
