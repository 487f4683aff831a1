package api

import (
	"errors"
	"net/http"
	"strconv"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/handler/httpcache"
	"library-lending-api/internal/handler/httperr"
	"library-lending-api/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	bookQueries   queries.BookQueries
	authorQueries queries.AuthorQueries
	searchQueries queries.SearchQueries
	homeQueries   queries.HomeQueries
}

func NewCatalogHandler(
	bookQueries queries.BookQueries,
	authorQueries queries.AuthorQueries,
	searchQueries queries.SearchQueries,
	homeQueries queries.HomeQueries,
) *CatalogHandler {
	return &CatalogHandler{
		bookQueries:   bookQueries,
		authorQueries: authorQueries,
		searchQueries: searchQueries,
		homeQueries:   homeQueries,
	}
}

// @Summary Get book
// @Description Book with author and copy availability; supports conditional GET
// @Tags catalog
// @Produce json
// @Param id path string true "Book id (without collection prefix)"
// @Success 200 {object} queries.BookView
// @Success 304
// @Failure 404 {object} httperr.Response
// @Router /books/{id} [get]
func (h *CatalogHandler) GetBook(c *gin.Context) {
	bookID := catalog.BuildBookID(c.Param("id"))

	view, etag, err := h.bookQueries.GetBook(c.Request.Context(), bookID)
	if err != nil {
		if errors.Is(err, queries.ErrBookNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Book not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	httpcache.Reply(c, http.StatusOK, etag, view)
}

// @Summary Get author
// @Description Author with their books; supports conditional GET
// @Tags catalog
// @Produce json
// @Param id path string true "Author id (without collection prefix)"
// @Success 200 {object} queries.AuthorDetailView
// @Success 304
// @Failure 404 {object} httperr.Response
// @Router /authors/{id} [get]
func (h *CatalogHandler) GetAuthor(c *gin.Context) {
	authorID := catalog.BuildAuthorID(c.Param("id"))

	view, etag, err := h.authorQueries.GetAuthor(c.Request.Context(), authorID)
	if err != nil {
		if errors.Is(err, queries.ErrAuthorNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Author not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	httpcache.Reply(c, http.StatusOK, etag, view)
}

// @Summary Search
// @Description Search books and authors; supports conditional GET
// @Tags catalog
// @Produce json
// @Param query query string false "Search text"
// @Param offset query int false "Result offset"
// @Success 200 {array} queries.SearchHit
// @Success 304
// @Router /search [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	offset, _ := strconv.Atoi(c.Query("offset"))

	hits, etag, err := h.searchQueries.Search(c.Request.Context(), c.Query("query"), offset)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	httpcache.Reply(c, http.StatusOK, etag, hits)
}

// @Summary Home books
// @Description Random books for the home page; never cached
// @Tags catalog
// @Produce json
// @Success 200 {array} queries.HomeBookView
// @Router /home/books [get]
func (h *CatalogHandler) HomeBooks(c *gin.Context) {
	views, err := h.homeQueries.HomeBooks(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	// Deliberately uncached: the selection is randomized per request.
	c.JSON(http.StatusOK, views)
}
