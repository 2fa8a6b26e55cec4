package mcp

import (
	"encoding/json"
	"strings"

	mcplib "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

// APIDocument is the OpenAPI 3.0 view of the redline tool surface. Each
// tool becomes POST /tools/{name}.
type APIDocument struct {
	OpenAPI    string             `json:"openapi"`
	Info       APIInfo            `json:"info"`
	Paths      map[string]APIPath `json:"paths"`
	Components APIComponents      `json:"components"`
	Resources  []string           `json:"x-redline-resources"`
}

type APIInfo struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type APIPath struct {
	Post *APIOperation `json:"post,omitempty"`
}

type APIOperation struct {
	OperationID string                 `json:"operationId"`
	Summary     string                 `json:"summary,omitempty"`
	Tags        []string               `json:"tags"`
	RequestBody *APIRequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]APIResponse `json:"responses"`
}

type APIRequestBody struct {
	Required bool                    `json:"required"`
	Content  map[string]APIMediaType `json:"content"`
}

type APIMediaType struct {
	Schema any `json:"schema"`
}

type APIResponse struct {
	Description string `json:"description"`
}

type APIComponents struct {
	Schemas map[string]json.RawMessage `json:"schemas"`
}

// toolFailures lists the domain failures a tool can surface beyond the
// generic ones, keyed by HTTP status.
var toolFailures = map[string]map[string]error{
	"redline_intake": {"422": suggestion.ErrInvalidFeedback},
	"redline_get":    {"404": suggestion.ErrNotFound},
	"redline_accept": {"404": suggestion.ErrNotFound, "409": suggestion.ErrInvalidTransition},
	"redline_reject": {"404": suggestion.ErrNotFound, "409": suggestion.ErrInvalidTransition},
}

// OpenAPI returns the OpenAPI document for this server.
func (s *Server) OpenAPI() ([]byte, error) {
	return GenerateOpenAPI(s.mcpServer)
}

// GenerateOpenAPI describes every tool registered on srv.
func GenerateOpenAPI(srv *mcplib.Server) ([]byte, error) {
	doc := APIDocument{
		OpenAPI: "3.0.3",
		Info: APIInfo{
			Title:       "Redline MCP API",
			Description: "Review tools for suggestions applied to a live document.",
			Version:     SchemaVersion,
		},
		Paths: map[string]APIPath{},
		Components: APIComponents{
			Schemas: map[string]json.RawMessage{
				"Feedback": json.RawMessage(suggestion.FeedbackSchema()),
			},
		},
		Resources: []string{documentURI, schemaURI, feedbackURI},
	}

	for _, tool := range srv.Tools() {
		op := &APIOperation{
			OperationID: tool.Name,
			Summary:     tool.Description,
			Tags:        []string{toolTag(tool.Name)},
			Responses:   responsesFor(tool.Name),
		}
		if hasProperties(tool.InputSchema) {
			op.RequestBody = &APIRequestBody{
				Required: true,
				Content:  map[string]APIMediaType{"application/json": {Schema: tool.InputSchema}},
			}
		}
		doc.Paths["/tools/"+tool.Name] = APIPath{Post: op}
	}

	return json.MarshalIndent(doc, "", "  ")
}

func responsesFor(tool string) map[string]APIResponse {
	out := map[string]APIResponse{
		"200": {Description: "OK"},
		"500": {Description: "Workspace could not be read or written"},
	}
	for code, err := range toolFailures[tool] {
		out[code] = APIResponse{Description: err.Error()}
	}
	return out
}

// toolTag groups a tool by its name prefix, so redline_accept is tagged
// redline.
func toolTag(name string) string {
	prefix, _, found := strings.Cut(name, "_")
	if !found || prefix == "" {
		return "tools"
	}
	return prefix
}

func hasProperties(schema any) bool {
	m, ok := schema.(map[string]any)
	if !ok {
		return false
	}
	props, _ := m["properties"].(map[string]any)
	return len(props) > 0
}
