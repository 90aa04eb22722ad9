package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"sigs.k8s.io/yaml"
)

// OpenAPIHandler serves the API description as JSON and as raw YAML.
type OpenAPIHandler struct {
	rawYAML  []byte
	jsonSpec []byte
}

// NewOpenAPIHandler converts yamlSpec to JSON up front so a malformed document
// fails at startup instead of on the first request.
func NewOpenAPIHandler(yamlSpec []byte) (*OpenAPIHandler, error) {
	jsonSpec, err := yaml.YAMLToJSON(yamlSpec)
	if err != nil {
		return nil, fmt.Errorf("converting OpenAPI document to JSON: %w", err)
	}
	return &OpenAPIHandler{rawYAML: yamlSpec, jsonSpec: jsonSpec}, nil
}

// ServeJSON handles GET /openapi.json.
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	h.write(w, "application/json", h.jsonSpec)
}

// ServeYAML handles GET /openapi.yaml.
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	h.write(w, "application/yaml", h.rawYAML)
}

func (h *OpenAPIHandler) write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write OpenAPI response", "error", err)
	}
}
