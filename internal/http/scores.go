package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/movie-scores/internal/scoring"
	"github.com/Clark-Hu/movie-scores/internal/validation"
)

type scoreRequest struct {
	MovieID string   `json:"movieId" validate:"required,uuid"`
	Score   *float64 `json:"score" validate:"required"`
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		s.respondValidation(w, err)
		return
	}

	view, err := s.scores.SubmitScore(r.Context(), scoring.ScoreInput{
		MovieID: req.MovieID,
		Value:   *req.Score,
	})
	if err != nil {
		s.respondDomainError(w, r, err, "submit score")
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}
