//go:build unit

package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"library-lending-api/internal/domain/catalog"
	"library-lending-api/internal/handler/api"
	"library-lending-api/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type stubBookQueries struct {
	view *queries.BookView
	etag string
	err  error
}

func (q *stubBookQueries) GetBook(context.Context, string) (*queries.BookView, string, error) {
	return q.view, q.etag, q.err
}

type stubAuthorQueries struct{}

func (q *stubAuthorQueries) GetAuthor(context.Context, string) (*queries.AuthorDetailView, string, error) {
	return nil, "", queries.ErrAuthorNotFound
}

type stubSearchQueries struct {
	gotQuery  string
	gotOffset int
}

func (q *stubSearchQueries) Search(_ context.Context, query string, offset int) ([]queries.SearchHit, string, error) {
	q.gotQuery, q.gotOffset = query, offset
	return []queries.SearchHit{}, "Q:Search-1-1", nil
}

type stubHomeQueries struct{}

func (q *stubHomeQueries) HomeBooks(context.Context) ([]queries.HomeBookView, error) {
	return []queries.HomeBookView{{ID: catalog.BuildBookID("1"), Title: "Emma"}}, nil
}

type CatalogHandlerTestSuite struct {
	suite.Suite
	router *gin.Engine
	books  *stubBookQueries
	search *stubSearchQueries
}

func (s *CatalogHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.books = &stubBookQueries{
		view: &queries.BookView{ID: catalog.BuildBookID("1"), Title: "Emma"},
		etag: "Q:BookCopies-3=A:1-x=A:2-x",
	}
	s.search = &stubSearchQueries{}
	handler := api.NewCatalogHandler(s.books, &stubAuthorQueries{}, s.search, &stubHomeQueries{})

	s.router = gin.New()
	s.router.GET("/api/books/:id", handler.GetBook)
	s.router.GET("/api/authors/:id", handler.GetAuthor)
	s.router.GET("/api/search", handler.Search)
	s.router.GET("/api/home/books", handler.HomeBooks)
}

func TestCatalogHandlerSuite(t *testing.T) {
	suite.Run(t, new(CatalogHandlerTestSuite))
}

func (s *CatalogHandlerTestSuite) perform(path, ifNoneMatch string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ifNoneMatch != "" {
		req.Header.Set("If-None-Match", ifNoneMatch)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *CatalogHandlerTestSuite) TestGetBookCarriesValidator() {
	rec := s.perform("/api/books/1", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(s.books.etag, rec.Header().Get("ETag"))
	s.Contains(rec.Body.String(), "Emma")
}

func (s *CatalogHandlerTestSuite) TestGetBookNotModified() {
	rec := s.perform("/api/books/1", s.books.etag)
	s.Require().Equal(http.StatusNotModified, rec.Code)
	s.Empty(rec.Body.String())
}

func (s *CatalogHandlerTestSuite) TestGetBookNotFound() {
	s.books.view, s.books.etag, s.books.err = nil, "", queries.ErrBookNotFound
	rec := s.perform("/api/books/none", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *CatalogHandlerTestSuite) TestGetAuthorNotFound() {
	rec := s.perform("/api/authors/none", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *CatalogHandlerTestSuite) TestSearchPassesQueryAndOffset() {
	rec := s.perform("/api/search?query=emma&offset=20", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("emma", s.search.gotQuery)
	s.Equal(20, s.search.gotOffset)
	s.Equal("Q:Search-1-1", rec.Header().Get("ETag"))
}

func (s *CatalogHandlerTestSuite) TestSearchIgnoresBadOffset() {
	rec := s.perform("/api/search?query=emma&offset=junk", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(0, s.search.gotOffset)
}

func (s *CatalogHandlerTestSuite) TestHomeBooksAreNeverCached() {
	rec := s.perform("/api/home/books", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Header().Get("ETag"))
	s.Empty(rec.Header().Get("Cache-Control"))
}
