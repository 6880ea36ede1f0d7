package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/profile-service/internal/api/middleware"
	"github.com/d60-Lab/profile-service/pkg/response"
)

// acceptedResponse is returned before any store work happens: it promises
// only that the request was well-formed, not that the edge will exist.
type acceptedResponse struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	FollowerID  string `json:"followerId"`
	FollowingID string `json:"followingId"`
}

// Follow queues a follow edge creation.
// @Summary Follow a user (async)
// @Tags relationships
// @Produce json
// @Param id path string true "target user id"
// @Success 202 {object} acceptedResponse
// @Failure 400 {object} response.Response
// @Router /users/{id}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	h.requestEdgeChange(c, "follow requested", h.relService.RequestFollow)
}

// Unfollow queues a follow edge removal.
// @Summary Unfollow a user (async)
// @Tags relationships
// @Produce json
// @Param id path string true "target user id"
// @Success 202 {object} acceptedResponse
// @Failure 400 {object} response.Response
// @Router /users/{id}/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	h.requestEdgeChange(c, "unfollow requested", h.relService.RequestUnfollow)
}

func (h *Handler) requestEdgeChange(c *gin.Context, message string, request func(ctx context.Context, followerID, followingID string) error) {
	// follower identity comes from the auth middleware, never the body
	followerID := c.GetString(middleware.ContextUserID)
	followingID := c.Param("id")
	if err := request(c.Request.Context(), followerID, followingID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, acceptedResponse{
		Message:     message,
		Status:      "processing",
		FollowerID:  followerID,
		FollowingID: followingID,
	})
}

// ListFollowers returns one page of the target's followers, newest first.
// @Summary List followers
// @Tags relationships
// @Produce json
// @Param id path string true "user id"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /users/{id}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := h.relService.ListFollowers(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": res.Users, "pagination": res.Pagination})
}

// ListFollowing returns one page of users the target follows, newest first.
// @Summary List following
// @Tags relationships
// @Produce json
// @Param id path string true "user id"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /users/{id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := h.relService.ListFollowing(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": res.Users, "pagination": res.Pagination})
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
