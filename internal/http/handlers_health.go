package httpx

import (
	"io"
	"net/http"
)

// The health body is static; load balancers poll this endpoint aggressively
// so it avoids per-request allocation.
const healthResponse = `{"status":"ok","service":"genrelay"}`

// healthHandler answers liveness/readiness probes. It reports process health
// only; database and Redis reachability surface through reconciler metrics
// rather than failing the probe and restarting an otherwise healthy process.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
