package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-service/internal/domain"
	"user-service/internal/metrics"
	"user-service/internal/service"
)

const maxNameLength = 50

// Paging bounds the page sizes accepted by the list endpoint.
type Paging struct {
	DefaultSize int
	MaxSize     int
}

// Handler wires HTTP routes to the user service.
type Handler struct {
	users   service.UserService
	logger  logrus.FieldLogger
	paging  Paging
	metrics *metrics.Registry
}

// NewHandler builds a Handler. A nil metrics registry disables /metrics.
func NewHandler(users service.UserService, logger logrus.FieldLogger, paging Paging, registry *metrics.Registry) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if paging.DefaultSize <= 0 {
		paging.DefaultSize = 10
	}
	if paging.MaxSize < paging.DefaultSize {
		paging.MaxSize = paging.DefaultSize
	}
	return &Handler{
		users:   users,
		logger:  logger,
		paging:  paging,
		metrics: registry,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), requestMetrics(h.metrics), corsMiddleware())
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.POST("/users", h.createUser)
		api.GET("/users", h.listUsers)
		api.GET("/users/:id", h.getUser)
		api.GET("/users/username/:username", h.getUserByUsername)
		api.PUT("/users/:id", h.updateUser)
		api.DELETE("/users/:id", h.deleteUser)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type createUserRequest struct {
	ID       *int64 `json:"id" binding:"required"`
	Username string `json:"username" binding:"required"`
	LastName string `json:"lastName" binding:"required"`
	Age      *int   `json:"age" binding:"required,min=0"`
}

// updateUserRequest uses pointers so an omitted or null field is distinguishable from a zero value.
type updateUserRequest struct {
	Username *string `json:"username"`
	LastName *string `json:"lastName"`
	Age      *int    `json:"age" binding:"omitempty,min=0"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username, err := requireName("username", req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lastName, err := requireName("lastName", req.LastName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Create(c.Request.Context(), domain.NewUser{
		ID:       *req.ID,
		Username: username,
		LastName: lastName,
		Age:      *req.Age,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) getUserByUsername(c *gin.Context) {
	user, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) listUsers(c *gin.Context) {
	req, err := h.pageRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.users.List(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, pageToResponse(page))
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := domain.UserPatch{Age: domain.FromPtr(req.Age)}
	if req.Username != nil {
		username, err := requireName("username", *req.Username)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.Username = domain.Some(username)
	}
	if req.LastName != nil {
		lastName, err := requireName("lastName", *req.LastName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.LastName = domain.Some(lastName)
	}

	user, err := h.users.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) pageRequest(c *gin.Context) (domain.PageRequest, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		return domain.PageRequest{}, fmt.Errorf("invalid page")
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(h.paging.DefaultSize)))
	if err != nil || size <= 0 {
		return domain.PageRequest{}, fmt.Errorf("invalid page size")
	}
	if size > h.paging.MaxSize {
		size = h.paging.MaxSize
	}
	// the row offset page*size must fit in an int
	if page > math.MaxInt/size {
		return domain.PageRequest{}, fmt.Errorf("page out of range")
	}
	sort, err := domain.ParseSort(c.Query("sort"))
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.PageRequest{Page: page, Size: size, Sort: sort}, nil
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserExists), errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).
			WithField("request_id", c.GetString(requestIDKey)).
			Errorf("%s %s failed", c.Request.Method, c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func requireName(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s must not be blank", field)
	}
	if len([]rune(value)) > maxNameLength {
		return "", fmt.Errorf("%s must be at most %d characters", field, maxNameLength)
	}
	return value, nil
}
