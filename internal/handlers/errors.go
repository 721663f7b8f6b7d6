package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"luminexus/internal/logger"
	"luminexus/internal/repository"
	"luminexus/internal/security"
	"luminexus/internal/service"
	"luminexus/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Error(logMsg, "status", status, "error", err)
	}

	respondWithJSON(w, status, errorResponse{Error: userMsg})
}

// statusForError maps domain errors to HTTP statuses. Unknown errors are 500.
func statusForError(err error) int {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidScore):
		return http.StatusBadRequest
	case errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInsufficientCoins):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrInvalidPIN):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnknownItem),
		errors.Is(err, service.ErrUnknownAchievement),
		errors.Is(err, repository.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyOwned),
		errors.Is(err, service.ErrItemNotOwned):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes err with its mapped status. Internal
// causes are logged and hidden from the client.
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, logMsg string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, log, status, ErrInternalServerError, logMsg, err)
		return
	}
	respondWithError(w, log, status, err.Error(), "", nil)
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged
// when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := decoder.Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	return err
}
