package apiutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	StatusCode int         `json:"statusCode,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteSuccess writes the success envelope around data.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	if err := writeJSON(w, status, Envelope{Success: true, Data: data, Message: message}); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// WritePaginated writes a success envelope with pagination metadata.
func WritePaginated(w http.ResponseWriter, data any, page, limit, total int64) {
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	env := Envelope{
		Success: true,
		Data:    data,
		Pagination: &Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
	if err := writeJSON(w, http.StatusOK, env); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// WriteError writes the error envelope. Messages are user-facing; internal
// detail stays in the logs.
func WriteError(w http.ResponseWriter, status int, message string) {
	if err := writeJSON(w, status, Envelope{Success: false, Message: message, StatusCode: status}); err != nil {
		log.Error().Err(err).Msg("Failed to write error response")
	}
}
