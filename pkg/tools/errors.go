// Package tools provides the GeoContext MCP tool implementations.
package tools

import (
	"fmt"
	"net/http"
)

// APIError represents an error that occurred while communicating with
// an external API service, with information to help users recover.
type APIError struct {
	Service     string // The API service name (e.g., "Nominatim", "GeoContext")
	StatusCode  int    // HTTP status code
	Message     string // Error message
	Recoverable bool   // Whether the error can be recovered from
	Guidance    string // Guidance for users on how to recover
}

// Error implements the error interface and provides a formatted error
// message. A zero status code means the failure never got an HTTP response
// (network error, stream decode failure) and is left out of the text.
func (e *APIError) Error() string {
	prefix := fmt.Sprintf("%s API error", e.Service)
	if e.StatusCode != 0 {
		prefix = fmt.Sprintf("%s API error (%d)", e.Service, e.StatusCode)
	}
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s. %s", prefix, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Common error guidance messages
const (
	// Nominatim guidance
	GuidanceNominatimRateLimit = "Please try again in a few seconds."
	GuidanceNominatimGeneral   = "Check your query formatting and try again."

	// Analysis service guidance
	GuidanceAnalysisTimeout = "The analysis backend samples satellite rasters and can take a minute; try again or select a smaller area."
	GuidanceAnalysisGeneral = "Check that the analysis backend is reachable and try again."

	// Generic guidance
	GuidanceGeneral      = "Please try again later or modify your request parameters."
	GuidanceNetworkError = "Check your internet connection and try again."
	GuidanceDataError    = "The data received was incomplete or malformed. Try different parameters."
)

// NewAPIError creates a new APIError with appropriate guidance based on status code.
func NewAPIError(service string, statusCode int, message, guidance string) *APIError {
	// Use provided guidance if available, otherwise infer based on status code
	if guidance == "" {
		switch statusCode {
		case http.StatusTooManyRequests:
			guidance = "Rate limit exceeded. Please try again in a few moments."
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			guidance = "The request timed out. Try a smaller area or try again later."
		case http.StatusBadRequest:
			guidance = "The request was invalid. Check your parameters and try again."
		case http.StatusInternalServerError:
			guidance = "The server encountered an error. This is likely temporary, please try again later."
		case http.StatusServiceUnavailable:
			guidance = "The service is temporarily unavailable. Please try again later."
		default:
			guidance = GuidanceGeneral
		}
	}

	return &APIError{
		Service:     service,
		StatusCode:  statusCode,
		Message:     message,
		Recoverable: statusCode != http.StatusBadRequest,
		Guidance:    guidance,
	}
}
