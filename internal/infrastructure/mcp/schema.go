package mcp

import (
	"context"
	"encoding/json"
	"sort"

	mcplib "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

// SchemaVersion is the current MCP tool schema version (semver).
const SchemaVersion = "1.0.0"

const (
	schemaURI   = "redline://schema"
	feedbackURI = "redline://schema/feedback"
	documentURI = "redline://document"
)

type schemaResponse struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	FeedbackURI   string   `json:"feedback_schema"`
	Tools         []string `json:"tools"`
}

func (s *Server) toolNames() []string {
	tools := s.mcpServer.Tools()
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(schemaURI).
		Name(schemaURI).
		Description("Tool schema version and the registered tool names").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			resp := schemaResponse{
				SchemaVersion: SchemaVersion,
				ServerVersion: Version,
				FeedbackURI:   feedbackURI,
				Tools:         s.toolNames(),
			}
			data, err := json.Marshal(resp)
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      schemaURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})

	s.mcpServer.Resource(feedbackURI).
		Name(feedbackURI).
		Description("JSON Schema accepted by redline_intake").
		MimeType("application/schema+json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			return &mcplib.ResourceContent{
				URI:      feedbackURI,
				MimeType: "application/schema+json",
				Text:     suggestion.FeedbackSchema(),
			}, nil
		})
}

func (s *Server) registerDocumentResource() {
	s.mcpServer.Resource(documentURI).
		Name(documentURI).
		Description("The live document under review").
		MimeType("text/html").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			return &mcplib.ResourceContent{
				URI:      documentURI,
				MimeType: "text/html",
				Text:     s.session.Document.Markup(),
			}, nil
		})
}
