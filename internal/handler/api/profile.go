package api

import (
	"errors"
	"net/http"

	"library-lending-api/internal/handler/httperr"
	"library-lending-api/internal/handler/middleware"
	"library-lending-api/internal/usecase/commands"
	"library-lending-api/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileCommands commands.ProfileCommands
	profileQueries  queries.ProfileQueries
}

func NewProfileHandler(profileCommands commands.ProfileCommands, profileQueries queries.ProfileQueries) *ProfileHandler {
	return &ProfileHandler{
		profileCommands: profileCommands,
		profileQueries:  profileQueries,
	}
}

// @Summary User profile
// @Description Lazily creates the user on first access (with a welcome
// @Description notification) and lists their outstanding loans.
// @Tags user
// @Produce json
// @Param X-User-Id header string true "Opaque user identifier"
// @Success 200 {object} queries.ProfileView
// @Failure 401 {object} httperr.Response
// @Router /user/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errors.New("no user in context"), "Internal server error", nil)
		return
	}

	created, err := h.profileCommands.EnsureUser(c.Request.Context(), userID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	if created {
		// A user has no books if it was just created.
		c.JSON(http.StatusOK, queries.ProfileView{ID: userID, Borrowed: []queries.BookRef{}})
		return
	}

	view, err := h.profileQueries.GetProfile(c.Request.Context(), userID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, view)
}
