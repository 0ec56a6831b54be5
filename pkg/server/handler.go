package server

import (
	"encoding/json"
	"net/http"

	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
)

// HealthResponse is the body served at /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Tools   int    `json:"tools"`
}

// HandleHealth handles the /health endpoint for health checks
func HandleHealth(service string, tools int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := HealthResponse{Status: "healthy", Service: service, Tools: tools}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logging.For("server").Warn("failed to encode health response", "error", err)
		}
	}
}
