package middleware

import (
	"net/http"

	"github.com/fleetminder/fleetminder/internal/api/models"
)

// writeProblem mirrors response.Problem, which cannot be imported here
// because the response package depends on this one.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	models.NewProblem(status, GetRequestID(r.Context()), detail).
		WithInstance(r.URL.Path).
		Write(w)
}
