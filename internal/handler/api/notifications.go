package api

import (
	"errors"
	"net/http"

	"library-lending-api/internal/domain/account"
	resdto "library-lending-api/internal/handler/dto/response"
	"library-lending-api/internal/handler/httperr"
	"library-lending-api/internal/handler/middleware"
	"library-lending-api/internal/usecase/commands"
	"library-lending-api/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	profileCommands      commands.ProfileCommands
	notificationCommands commands.NotificationCommands
	notificationQueries  queries.NotificationQueries
}

func NewNotificationHandler(
	profileCommands commands.ProfileCommands,
	notificationCommands commands.NotificationCommands,
	notificationQueries queries.NotificationQueries,
) *NotificationHandler {
	return &NotificationHandler{
		profileCommands:      profileCommands,
		notificationCommands: notificationCommands,
		notificationQueries:  notificationQueries,
	}
}

// @Summary List notifications
// @Tags user
// @Produce json
// @Param X-User-Id header string true "Opaque user identifier"
// @Success 200 {array} queries.NotificationView
// @Failure 401 {object} httperr.Response
// @Router /user/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errors.New("no user in context"), "Internal server error", nil)
		return
	}

	// First contact may be the notification poll rather than the profile
	// page, so user creation happens here as well.
	if _, err := h.profileCommands.EnsureUser(c.Request.Context(), userID); err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	views, err := h.notificationQueries.List(c.Request.Context(), userID, queries.MaxNotifications)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, views)
}

// @Summary Notification count
// @Tags user
// @Produce json
// @Param X-User-Id header string true "Opaque user identifier"
// @Success 200 {object} response.NotificationCountResponse
// @Failure 401 {object} httperr.Response
// @Router /user/notifications/count [get]
func (h *NotificationHandler) Count(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errors.New("no user in context"), "Internal server error", nil)
		return
	}

	count, err := h.notificationQueries.Count(c.Request.Context(), userID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.NotificationCountResponse{Count: count})
}

// @Summary Delete notification
// @Tags user
// @Param X-User-Id header string true "Opaque user identifier"
// @Param id path string true "Notification id (without collection prefix)"
// @Success 204
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /user/notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errors.New("no user in context"), "Internal server error", nil)
		return
	}

	notificationID := account.BuildNotificationID(c.Param("id"))

	err := h.notificationCommands.Delete(c.Request.Context(), userID, notificationID)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrNotificationNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Notification not found", nil)
		case errors.Is(err, commands.ErrNotOwner):
			httperr.AbortWithError(c, http.StatusForbidden, err, "Notification belongs to another user", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
