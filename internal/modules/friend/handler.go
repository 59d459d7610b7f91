package friend

import (
	"errors"
	"net/http"

	"huddle/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	friends := protected.Group("/friends")
	{
		friends.GET("", h.ListFriends)
		friends.GET("/requests", h.ListRequests)
		friends.POST("/requests", h.SendRequest)
		friends.POST("/requests/:id/accept", h.AcceptRequest)
		friends.POST("/requests/:id/decline", h.DeclineRequest)
	}
}

func (h *Handler) SendRequest(c *gin.Context) {
	accountID := c.GetInt64("user_id")

	var req SendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	created, err := h.service.Send(c.Request.Context(), accountID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfRequest):
			response.Error(c, http.StatusBadRequest, "SELF_REQUEST", "Cannot send a friend request to yourself")
		case errors.Is(err, ErrAccountNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Account not found")
		case errors.Is(err, ErrAlreadyLinked):
			response.Error(c, http.StatusConflict, "ALREADY_LINKED", "A request is already pending or you are already friends")
		case errors.Is(err, ErrDatabaseUnavailable):
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
		default:
			response.Error(c, http.StatusInternalServerError, "REQUEST_FAILED", "Failed to send friend request")
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"request": RequestView{
			ID:        created.ID,
			FromID:    created.FromID,
			ToID:      created.ToID,
			Status:    string(created.Status),
			CreatedAt: created.CreatedAt,
		},
	})
}

func (h *Handler) AcceptRequest(c *gin.Context) {
	h.respond(c, true)
}

func (h *Handler) DeclineRequest(c *gin.Context) {
	h.respond(c, false)
}

func (h *Handler) respond(c *gin.Context, accept bool) {
	accountID := c.GetInt64("user_id")
	requestID := c.Param("id")

	var err error
	if accept {
		err = h.service.Accept(c.Request.Context(), requestID, accountID)
	} else {
		err = h.service.Decline(c.Request.Context(), requestID, accountID)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Friend request not found")
		case errors.Is(err, ErrNotRecipient):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Only the recipient may respond to this request")
		case errors.Is(err, ErrAlreadyResponded):
			response.Error(c, http.StatusConflict, "ALREADY_RESPONDED", "Friend request already responded to")
		case errors.Is(err, ErrDatabaseUnavailable):
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
		default:
			response.Error(c, http.StatusInternalServerError, "RESPOND_FAILED", "Failed to respond to friend request")
		}
		return
	}

	status := "declined"
	if accept {
		status = "accepted"
	}
	response.Success(c, http.StatusOK, gin.H{"status": status})
}

func (h *Handler) ListFriends(c *gin.Context) {
	accountID := c.GetInt64("user_id")

	friends, err := h.service.ListFriends(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, ErrDatabaseUnavailable) {
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
			return
		}
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list friends")
		return
	}
	if friends == nil {
		friends = []int64{}
	}

	response.Success(c, http.StatusOK, gin.H{"friends": friends})
}

func (h *Handler) ListRequests(c *gin.Context) {
	accountID := c.GetInt64("user_id")

	reqs, err := h.service.ListRequests(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, ErrDatabaseUnavailable) {
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
			return
		}
		response.Error(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list friend requests")
		return
	}

	views := make([]RequestView, 0, len(reqs))
	for _, r := range reqs {
		views = append(views, RequestView{
			ID:        r.ID,
			FromID:    r.FromID,
			ToID:      r.ToID,
			Status:    string(r.Status),
			CreatedAt: r.CreatedAt,
		})
	}

	response.Success(c, http.StatusOK, gin.H{"requests": views})
}
