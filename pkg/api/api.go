// Package api defines the JSON wire types exchanged between the pi service
// and its clients, with helpers to marshal them over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	contentTypeHeader = "Content-Type"
	jsonContentType   = "application/json"
)

// Metadata describes the service instance that produced a response.
type Metadata struct {
	// The hostname or other identity of the responding instance.
	Identity string `json:"identity,omitempty"`
	// Optional tags assigned to the instance by the operator.
	Tags []string `json:"tags,omitempty"`
	// Optional key-value annotations assigned to the instance by the operator.
	Annotations map[string]string `json:"annotations,omitempty"`
}

// DigitResponse is returned for a single fractional digit request.
type DigitResponse struct {
	// The zero-based fractional index that was requested.
	Index uint64 `json:"index"`
	// The decimal digit of pi at Index.
	Digit uint32 `json:"digit"`
	// Describes the instance that calculated the digit.
	Metadata *Metadata `json:"metadata,omitempty"`
}

// BlockResponse is returned for a nine-digit block request.
type BlockResponse struct {
	// The zero-based fractional index of the first digit in the block.
	Index uint64 `json:"index"`
	// Nine consecutive decimal digits of pi starting at Index.
	Digits string `json:"digits"`
	// Describes the instance that calculated the block.
	Metadata *Metadata `json:"metadata,omitempty"`
}

// WriteResponse encodes v as JSON to the HTTP response writer.
func WriteResponse(w http.ResponseWriter, v any) error {
	w.Header().Set(contentTypeHeader, jsonContentType)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode response as JSON: %w", err)
	}
	return nil
}

// WriteError sets a JSON content type and the provided HTTP status code on
// the response writer.
func WriteError(w http.ResponseWriter, status int) {
	w.Header().Set(contentTypeHeader, jsonContentType)
	w.WriteHeader(status)
}

// ReadResponse decodes the JSON body of a service response into v.
func ReadResponse(r *http.Response, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}
	return nil
}
