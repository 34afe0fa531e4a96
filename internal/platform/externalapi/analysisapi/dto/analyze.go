// Package dto defines data transfer objects for the Analysis Service API.
package dto

// AnalyzeRequest is the JSON body of POST /api/analyze.
type AnalyzeRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// AnalyzeResponse is the JSON body returned by POST /api/analyze.
// DeepfakeScore is a pointer so that a missing score can be told apart from 0.
type AnalyzeResponse struct {
	DeepfakeScore     *int     `json:"deepfake_score"`
	Explanation       string   `json:"explanation"`
	SuspiciousRegions []Region `json:"suspicious_regions"`
	Version           string   `json:"version"`
}

// Region is one suspicious region in relative coordinates.
type Region struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}
