package transport

import (
	"encoding/json"
	"net/http"

	"github.com/weiche-dev/weiche/pkg/api"
)

// errorBody is the JSON error envelope returned before a stream starts.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a RequestError as a JSON response with its HTTP
// status. Only used before SSE headers have been sent.
func writeError(w http.ResponseWriter, err *api.RequestError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: err.Code, Message: err.Message}})
}
