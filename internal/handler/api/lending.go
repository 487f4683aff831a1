package api

import (
	"errors"
	"net/http"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/domain/lending"
	resdto "library-lending-api/internal/handler/dto/response"
	"library-lending-api/internal/handler/httperr"
	"library-lending-api/internal/handler/middleware"
	"library-lending-api/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type LendingHandler struct {
	lendingCommands commands.LendingCommands
}

func NewLendingHandler(lendingCommands commands.LendingCommands) *LendingHandler {
	return &LendingHandler{lendingCommands: lendingCommands}
}

// @Summary Borrow a book
// @Description Lends one available copy to the caller. 404 means no copy is
// @Description available (give up); 409 means the copy was taken concurrently
// @Description (retrying may succeed).
// @Tags lending
// @Produce json
// @Param X-User-Id header string true "Opaque user identifier"
// @Param id path string true "Book id (without collection prefix)"
// @Success 201 {object} response.BorrowedBookResponse
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /user/books/borrow/{id} [post]
func (h *LendingHandler) Borrow(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errors.New("no user in context"), "Internal server error", nil)
		return
	}

	bookID := catalog.BuildBookID(c.Param("id"))

	borrowed, err := h.lendingCommands.Borrow(c.Request.Context(), userID, bookID)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrNoAvailableCopy):
			httperr.AbortWithError(c, http.StatusNotFound, err, "No available copy", nil)
		case errors.Is(err, commands.ErrBorrowConflict):
			httperr.AbortWithError(c, http.StatusConflict, err, "Copy was borrowed concurrently", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromBorrowedBook(borrowed))
}

// @Summary Return a borrowed book
// @Tags lending
// @Param X-User-Id header string true "Opaque user identifier"
// @Param id path string true "Borrowed book id (without collection prefix)"
// @Success 204
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /user/books/return/{id} [post]
func (h *LendingHandler) Return(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errors.New("no user in context"), "Internal server error", nil)
		return
	}

	borrowedBookID := lending.BuildID(c.Param("id"))

	err := h.lendingCommands.Return(c.Request.Context(), userID, borrowedBookID)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrBorrowedBookNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Borrowed book not found", nil)
		case errors.Is(err, commands.ErrNotOwner):
			httperr.AbortWithError(c, http.StatusForbidden, err, "Borrowed book belongs to another user", nil)
		case errors.Is(err, commands.ErrAlreadyReturned):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Book already returned", nil)
		case errors.Is(err, commands.ErrBorrowConflict):
			httperr.AbortWithError(c, http.StatusConflict, err, "Return conflicted with a concurrent change", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
