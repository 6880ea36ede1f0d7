package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/profile-service/internal/api/middleware"
	"github.com/d60-Lab/profile-service/internal/cache"
	"github.com/d60-Lab/profile-service/internal/events"
	"github.com/d60-Lab/profile-service/internal/model"
	"github.com/d60-Lab/profile-service/internal/repository"
	"github.com/d60-Lab/profile-service/internal/service"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []struct {
		Topic   string
		Payload []byte
	}
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	raw, _ := json.Marshal(payload)
	p.messages = append(p.messages, struct {
		Topic   string
		Payload []byte
	}{topic, raw})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.messages {
		if m.Topic == topic {
			n++
		}
	}
	return n
}

type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	publisher *recordingPublisher
}

// newTestEnv wires the real service stack behind a router, with a stub
// middleware injecting the authenticated principal.
func newTestEnv(t *testing.T, principal string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Follow{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pub := &recordingPublisher{}

	relSvc := service.NewRelationshipService(
		repository.NewFollowRepository(db),
		cache.NewRedisInvalidator(client),
		pub, 100, 5*time.Second,
	)
	stop := relSvc.Start(1)
	t.Cleanup(func() { _ = stop(context.Background()) })

	h := New(relSvc, service.NewUserService(repository.NewUserRepository(db), cache.NewRedisInvalidator(client)), db)

	r := gin.New()
	users := r.Group("/users")
	users.Use(func(c *gin.Context) {
		if principal != "" {
			c.Set(middleware.ContextUserID, principal)
		}
		c.Next()
	})
	users.POST("", h.CreateUser)
	users.GET("/:id", h.GetUser)
	users.POST("/:id/follow", h.Follow)
	users.POST("/:id/unfollow", h.Unfollow)
	users.GET("/:id/followers", h.ListFollowers)
	users.GET("/:id/following", h.ListFollowing)

	return &testEnv{router: r, db: db, publisher: pub}
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.db.Create(&model.User{ID: id, AuthUserID: "auth-" + id, Username: id}).Error)
}

func TestFollowReturnsAccepted(t *testing.T) {
	env := newTestEnv(t, "user1")
	env.seedUser(t, "user1")
	env.seedUser(t, "user2")

	w := env.do(t, http.MethodPost, "/users/user2/follow")
	require.Equal(t, http.StatusAccepted, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "processing", body["status"])
	require.Equal(t, "user1", body["followerId"])
	require.Equal(t, "user2", body["followingId"])
	require.NotEmpty(t, body["message"])

	// after background completion the edge is visible through the list
	require.Eventually(t, func() bool {
		var cnt int64
		env.db.Model(&model.Follow{}).Count(&cnt)
		return cnt == 1
	}, 2*time.Second, 10*time.Millisecond)

	w = env.do(t, http.MethodGet, "/users/user2/followers?page=1&limit=20")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Followers  []model.User `json:"followers"`
		Pagination struct {
			Page    int   `json:"page"`
			Limit   int   `json:"limit"`
			Total   int64 `json:"total"`
			HasMore bool  `json:"hasMore"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Followers, 1)
	require.Equal(t, "user1", list.Followers[0].ID)
	require.Equal(t, 1, list.Pagination.Page)
	require.Equal(t, 20, list.Pagination.Limit)
	require.EqualValues(t, 1, list.Pagination.Total)
	require.False(t, list.Pagination.HasMore)
}

func TestRepeatFollowStillAcceptedButSingleEvent(t *testing.T) {
	env := newTestEnv(t, "user1")
	env.seedUser(t, "user1")
	env.seedUser(t, "user2")

	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/users/user2/follow").Code)
	require.Eventually(t, func() bool {
		return env.publisher.count(events.TopicUserFollowed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/users/user2/follow").Code)
	time.Sleep(150 * time.Millisecond)

	var cnt int64
	env.db.Model(&model.Follow{}).Count(&cnt)
	require.EqualValues(t, 1, cnt)
	require.Equal(t, 1, env.publisher.count(events.TopicUserFollowed))
}

func TestUnfollowMissingEdgeAcceptedThenDeadLettered(t *testing.T) {
	env := newTestEnv(t, "user1")
	env.seedUser(t, "user1")
	env.seedUser(t, "user3")

	w := env.do(t, http.MethodPost, "/users/user3/unfollow")
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return env.publisher.count(events.TopicDeadLetter) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var cnt int64
	env.db.Model(&model.Follow{}).Count(&cnt)
	require.EqualValues(t, 0, cnt)
}

func TestFollowWithoutPrincipalIsBadRequest(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedUser(t, "user2")

	w := env.do(t, http.MethodPost, "/users/user2/follow")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelfFollowIsBadRequest(t *testing.T) {
	env := newTestEnv(t, "user1")
	env.seedUser(t, "user1")

	w := env.do(t, http.MethodPost, "/users/user1/follow")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFollowersUnknownUserIsEmptyOK(t *testing.T) {
	env := newTestEnv(t, "user1")

	w := env.do(t, http.MethodGet, "/users/nobody/followers")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Followers []model.User `json:"followers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Empty(t, list.Followers)
}
