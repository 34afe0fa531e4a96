// Package analysisapi provides a client for the DeepTRUST Analysis Service.
package analysisapi

import "time"

// AnalyzePath is the analysis endpoint relative to the base URL.
const AnalyzePath = "/api/analyze"

// Config holds configuration for the Analysis Service client.
type Config struct {
	BaseURL string        // Base URL of the service (e.g., "http://localhost:8080")
	Timeout time.Duration // HTTP request timeout; 0 leaves it to the transport
}
