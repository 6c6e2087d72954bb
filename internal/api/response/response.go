// Package response writes JSON and problem responses for the API handlers.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/models"
)

// MaxBodyBytes caps the size of JSON request bodies.
const MaxBodyBytes = 1 << 20

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// JSON writes v with the given status. A nil v writes headers only.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	write(w, r, status, "", v)
}

// Created writes a 201 with a Location header pointing at the new resource.
func Created(w http.ResponseWriter, r *http.Request, location string, v any) {
	write(w, r, http.StatusCreated, location, v)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	echoRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Problem writes an RFC 7807 problem for status, scoped to the request path.
func Problem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	models.NewProblem(status, middleware.GetRequestID(r.Context()), detail).
		WithInstance(r.URL.Path).
		Write(w)
}

// ValidationFailed writes a 400 problem listing the field errors.
func ValidationFailed(w http.ResponseWriter, r *http.Request, errs []models.FieldError) {
	models.NewProblem(http.StatusBadRequest, middleware.GetRequestID(r.Context()), "request validation failed").
		WithInstance(r.URL.Path).
		WithErrors(errs).
		Write(w)
}

// DecodeJSON reads exactly one JSON object from the body into v. Unknown
// fields are rejected so a misspelt field in a partial update is not
// silently dropped.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: unexpected trailing data")
	}
	return nil
}

func write(w http.ResponseWriter, r *http.Request, status int, location string, v any) {
	echoRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	if location != "" {
		w.Header().Set("Location", location)
	}
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
	}
}

func echoRequestID(w http.ResponseWriter, r *http.Request) {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		w.Header().Set(middleware.RequestIDHeader, id)
	}
}
