package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/profile-service/internal/model"
)

func setupDB(t testing.TB) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Follow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t testing.TB, db *gorm.DB, id string) model.User {
	t.Helper()
	u := model.User{ID: id, AuthUserID: "auth-" + id, Username: id, DisplayName: id}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestCreateEdgeIdempotent(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	seedUser(t, db, "user1")
	seedUser(t, db, "user2")

	res, err := repo.CreateEdge(ctx, "user1", "user2")
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, "auth-user1", res.Follower.AuthUserID)
	require.Equal(t, "auth-user2", res.Following.AuthUserID)

	// second follow is a no-op, not an error
	res, err = repo.CreateEdge(ctx, "user1", "user2")
	require.NoError(t, err)
	require.False(t, res.Created)

	var cnt int64
	require.NoError(t, db.Model(&model.Follow{}).Count(&cnt).Error)
	require.EqualValues(t, 1, cnt)
}

func TestCreateEdgeUnknownParticipant(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	seedUser(t, db, "user1")

	_, err := repo.CreateEdge(ctx, "user1", "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.CreateEdge(ctx, "ghost", "user1")
	require.ErrorIs(t, err, ErrUserNotFound)

	var cnt int64
	require.NoError(t, db.Model(&model.Follow{}).Count(&cnt).Error)
	require.EqualValues(t, 0, cnt)
}

func TestRemoveEdge(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	seedUser(t, db, "user1")
	seedUser(t, db, "user2")

	// unfollow without an edge is an error, unlike follow
	_, err := repo.RemoveEdge(ctx, "user1", "user2")
	require.ErrorIs(t, err, ErrEdgeNotFound)

	_, err = repo.CreateEdge(ctx, "user1", "user2")
	require.NoError(t, err)

	res, err := repo.RemoveEdge(ctx, "user1", "user2")
	require.NoError(t, err)
	require.Equal(t, "user1", res.Follower.ID)
	require.Equal(t, "user2", res.Following.ID)

	var cnt int64
	require.NoError(t, db.Model(&model.Follow{}).Count(&cnt).Error)
	require.EqualValues(t, 0, cnt)
}

func TestListFollowersOrderingAndPagination(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	target := seedUser(t, db, "target")
	const n = 7
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		u := seedUser(t, db, fmt.Sprintf("fan%02d", i))
		// explicit timestamps so ordering is deterministic
		f := model.Follow{FollowerID: u.ID, FollowingID: target.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, db.Create(&f).Error)
	}

	users, total, err := repo.ListFollowers(ctx, target.ID, 0, 3)
	require.NoError(t, err)
	require.EqualValues(t, n, total)
	require.Len(t, users, 3)
	// newest edge first
	require.Equal(t, "fan06", users[0].ID)
	require.Equal(t, "fan05", users[1].ID)

	// pages partition the set exactly: no dup, no gap
	seen := map[string]bool{}
	for offset := 0; offset < n; offset += 3 {
		page, _, err := repo.ListFollowers(ctx, target.ID, offset, 3)
		require.NoError(t, err)
		for _, u := range page {
			require.False(t, seen[u.ID], "duplicate %s across pages", u.ID)
			seen[u.ID] = true
		}
	}
	require.Len(t, seen, n)
}

func TestListFollowingUnknownUserYieldsEmptyPage(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)

	users, total, err := repo.ListFollowing(context.Background(), "nobody", 0, 20)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
	require.Empty(t, users)
}

func BenchmarkCreateEdge(b *testing.B) {
	db := setupDB(b)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	users := make([]model.User, 1000)
	for i := range users {
		id := fmt.Sprintf("u%04d", i)
		users[i] = model.User{ID: id, AuthUserID: "auth-" + id, Username: id}
	}
	if err := db.Create(&users).Error; err != nil {
		b.Fatalf("seed users: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := users[i%len(users)].ID
		to := users[(i+1)%len(users)].ID
		_, _ = repo.CreateEdge(ctx, from, to)
	}
}
