package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/repository"
	"github.com/Clark-Hu/movie-scores/internal/validation"
)

type movieRequest struct {
	Title string  `json:"title" validate:"required,max=255"`
	Image *string `json:"image" validate:"omitempty,http_url,max=2048"`
}

type movieListResponse struct {
	Items      []movieResponse `json:"items"`
	NextCursor *string         `json:"nextCursor,omitempty"`
}

type movieResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Image     *string   `json:"image,omitempty"`
	Score     float64   `json:"score"`
	Count     int64     `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMovieFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Movies.List(r.Context(), filters)
	if err != nil {
		s.respondDomainError(w, r, err, "list movies")
		return
	}

	items := make([]movieResponse, 0, len(result.Items))
	for _, movie := range result.Items {
		items = append(items, toMovieResponse(movie))
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{
		Items:      items,
		NextCursor: result.NextCursor,
	})
}

func buildMovieFilters(query url.Values) (repository.MovieListFilters, error) {
	var filters repository.MovieListFilters

	if title := strings.TrimSpace(query.Get("title")); title != "" {
		filters.Title = &title
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := s.repo.Movies.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, r, err, "fetch movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeMovieRequest(w, r)
	if !ok {
		return
	}

	movie, err := s.repo.Movies.Create(r.Context(), repository.MovieCreateParams{
		Title: req.Title,
		Image: req.Image,
	})
	if err != nil {
		s.respondDomainError(w, r, err, "create movie")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/movies/%s", url.PathEscape(movie.ID)))
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeMovieRequest(w, r)
	if !ok {
		return
	}

	movie, err := s.repo.Movies.Update(r.Context(), chi.URLParam(r, "id"), repository.MovieUpdateParams{
		Title: req.Title,
		Image: req.Image,
	})
	if err != nil {
		s.respondDomainError(w, r, err, "update movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Movies.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondDomainError(w, r, err, "delete movie")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeMovieRequest(w http.ResponseWriter, r *http.Request) (movieRequest, bool) {
	var req movieRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return req, false
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Image = normalizeStringPtr(req.Image)
	if err := validation.ValidateStruct(&req); err != nil {
		s.respondValidation(w, err)
		return req, false
	}
	return req, true
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:        movie.ID,
		Title:     movie.Title,
		Image:     movie.Image,
		Score:     movie.Score,
		Count:     movie.ScoreCount,
		CreatedAt: movie.CreatedAt,
		UpdatedAt: movie.UpdatedAt,
	}
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
