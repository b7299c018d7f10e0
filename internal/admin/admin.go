// Package admin serves a read-mostly HTTP API over the live sessions.
package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/a-essam23/go-devicehub/pkg/graph"
	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var errClosedByAdmin = errors.New("session closed by admin")

type Handler struct {
	users  state.Manager
	graphs *graph.Store
}

type UserSummary struct {
	ID          string `json:"id"`
	Connections int    `json:"connections"`
}

type SessionSummary struct {
	UserID              string `json:"userId"`
	Hardware            int    `json:"hardware"`
	Apps                int    `json:"apps"`
	HardwareRequestRate int    `json:"hardwareRequestRate"`
	AppRequestRate      int    `json:"appRequestRate"`
}

// requestLogger replaces gin's default logger so admin requests land in the
// same structured log as everything else.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Admin request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// NewRouter builds the admin API.
func NewRouter(logger *slog.Logger, users state.Manager, graphs *graph.Store) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.With(slog.String("component", "admin"))))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	h := &Handler{users: users, graphs: graphs}
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/users", h.ListUsers)

		user := api.Group("/users/:id")
		{
			user.GET("/session", h.Session)
			user.POST("/close", h.CloseSession)
			user.GET("/dashboards/:dash/online", h.HardwareOnline)
			user.GET("/graph/:dash/:pinType/:pin", h.GraphSamples)
		}
	}
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.GetAllUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		count, _ := h.users.GetUserConnectionCount(u.ID)
		out = append(out, UserSummary{ID: u.ID, Connections: count})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) findUser(c *gin.Context) (*state.User, bool) {
	user, ok := h.users.FindUser(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User has no live session"})
		return nil, false
	}
	return user, true
}

func (h *Handler) Session(c *gin.Context) {
	user, ok := h.findUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SessionSummary{
		UserID:              user.ID,
		Hardware:            user.Session.HardwareCount(),
		Apps:                user.Session.AppCount(),
		HardwareRequestRate: user.Session.HardwareRequestRate(),
		AppRequestRate:      user.Session.AppRequestRate(),
	})
}

func (h *Handler) CloseSession(c *gin.Context) {
	user, ok := h.findUser(c)
	if !ok {
		return
	}
	user.Session.CloseAll(errClosedByAdmin)
	c.Status(http.StatusNoContent)
}

func (h *Handler) HardwareOnline(c *gin.Context) {
	dashID, err := strconv.Atoi(c.Param("dash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dash must be an integer"})
		return
	}
	user, ok := h.findUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashId": dashID, "online": user.Session.HasHardwareOnline(dashID)})
}

// GraphSamples reads from the profile, so it answers for users without a
// live session as well.
func (h *Handler) GraphSamples(c *gin.Context) {
	dashID, err := strconv.Atoi(c.Param("dash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dash must be an integer"})
		return
	}
	pin, err := strconv.ParseUint(c.Param("pin"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pin must be between 0 and 255"})
		return
	}
	userID := c.Param("id")
	key := model.NewGraphKey(dashID, byte(pin), model.PinType(c.Param("pinType")))
	profile, ok := h.users.FindProfile(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if !profile.HasGraphPin(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pin does not feed a graph widget"})
		return
	}
	c.JSON(http.StatusOK, h.graphs.Samples(userID, *key))
}
