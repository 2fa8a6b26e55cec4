// Package mcp exposes a review session to MCP clients: the agent that
// produced the feedback can list suggestions, decide them and read the
// patched document back.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/redline/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/redline/pkg/application"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

type Server struct {
	mcpServer *mcp.Server
	session   *wiring.Session
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// mcpErr returns a user-friendly error for MCP clients.
// Internal details are omitted; only the friendly message is returned.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// NewServer registers the review tools for session. The caller keeps
// ownership of the session and closes it after the server stops.
func NewServer(session *wiring.Session) (*Server, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}

	info := mcp.ServerInfo{
		Name:    "redline",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Redline MCP Server"),
			mcp.WithDescription("Redline applies reviewer suggestions to a live HTML document, one accept or reject at a time."),
			mcp.WithWebsiteURL("https://github.com/felixgeelhaar/redline"),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Submit feedback with redline_intake, inspect it with redline_list, then decide each suggestion with redline_accept or redline_reject. Read the result with redline_document."),
		),
		session: session,
	}

	s.registerTools()
	s.registerDocumentResource()
	s.registerSchemaResource()
	return s, nil
}

type IDArgs struct {
	ID string `json:"id" jsonschema:"description=The suggestion id"`
}

type ListArgs struct {
	Status string `json:"status,omitempty" jsonschema:"description=Only list suggestions in this status (pending, accepted or rejected)"`
}

type IntakeArgs struct {
	Feedback string `json:"feedback" jsonschema:"description=The feedback payload as JSON with suggestions and an optional summary"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("redline_intake").
		Description("Replace the current suggestion batch with a new feedback payload").
		Handler(s.handleIntake)

	s.mcpServer.Tool("redline_list").
		Description("List the suggestions of the current batch in submission order").
		Handler(s.handleList)

	s.mcpServer.Tool("redline_get").
		Description("Retrieve one suggestion by id").
		Handler(s.handleGet)

	s.mcpServer.Tool("redline_accept").
		Description("Accept a pending suggestion and apply it to the document when its target can be located").
		Handler(s.handleAccept)

	s.mcpServer.Tool("redline_reject").
		Description("Reject a pending suggestion without touching the document").
		Handler(s.handleReject)

	s.mcpServer.Tool("redline_document").
		Description("Retrieve the current document markup, including pending highlights").
		Handler(s.handleDocument)

	s.mcpServer.Tool("redline_summary").
		Description("Retrieve the reviewer summary and decision counts").
		Handler(s.handleSummary)

	s.mcpServer.Tool("redline_strip").
		Description("Remove every highlight marker from the document").
		Handler(s.handleStrip)
}

func (s *Server) handleIntake(ctx context.Context, args IntakeArgs) (string, error) {
	if strings.TrimSpace(args.Feedback) == "" {
		return "", mcpErr("Feedback payload is required.")
	}
	fb, err := suggestion.ParseFeedback([]byte(args.Feedback))
	if err != nil {
		return "", mcpErr(fmt.Sprintf("Feedback payload is invalid: %v", err))
	}

	report, err := s.session.Intake(ctx, fb)
	if err != nil && len(report.Admitted) == 0 && len(report.Refused) == 0 {
		return "", mcpErr("Failed to store feedback. Check the workspace is writable.")
	}
	msg := fmt.Sprintf("Batch %s: %d suggestions admitted", report.BatchID, len(report.Admitted))
	if len(report.Refused) > 0 {
		msg += fmt.Sprintf(", %d refused (%v)", len(report.Refused), err)
	}
	return msg, nil
}

func (s *Server) handleList(ctx context.Context, args ListArgs) (any, error) {
	list := s.session.Store.List()
	if args.Status == "" {
		return list, nil
	}

	want, err := suggestion.ParseStatus(args.Status)
	if err != nil {
		return nil, mcpErr("Unknown status. Use pending, accepted or rejected.")
	}
	filtered := make([]suggestion.Suggestion, 0, len(list))
	for _, sug := range list {
		if sug.Status == want {
			filtered = append(filtered, sug)
		}
	}
	return filtered, nil
}

func (s *Server) handleGet(ctx context.Context, args IDArgs) (any, error) {
	sug, err := s.session.Store.Get(args.ID)
	if err != nil {
		return nil, decisionErr(args.ID, err)
	}
	return sug, nil
}

func (s *Server) handleAccept(ctx context.Context, args IDArgs) (any, error) {
	out, err := s.session.Store.Accept(ctx, args.ID)
	if err != nil {
		return nil, decisionErr(args.ID, err)
	}
	return out, nil
}

func (s *Server) handleReject(ctx context.Context, args IDArgs) (string, error) {
	if err := s.session.Store.Reject(ctx, args.ID); err != nil {
		return "", decisionErr(args.ID, err)
	}
	return fmt.Sprintf("Suggestion %s rejected", args.ID), nil
}

func (s *Server) handleDocument(ctx context.Context, args struct{}) (string, error) {
	return s.session.Document.Markup(), nil
}

// SummaryView is the result of redline_summary.
type SummaryView struct {
	Summary         suggestion.Summary `json:"summary"`
	Counts          application.Counts `json:"counts"`
	BatchID         string             `json:"batch_id"`
	DocumentVersion int                `json:"document_version"`
}

func (s *Server) handleSummary(ctx context.Context, args struct{}) (any, error) {
	store := s.session.Store
	return SummaryView{
		Summary:         store.Summary(),
		Counts:          store.Counts(),
		BatchID:         store.BatchID(),
		DocumentVersion: s.session.Document.Version(),
	}, nil
}

func (s *Server) handleStrip(ctx context.Context, args struct{}) (string, error) {
	n, err := s.session.Strip(ctx)
	if err != nil {
		return "", mcpErr("Failed to save the stripped document.")
	}
	return fmt.Sprintf("Removed %d highlight markers", n), nil
}

func decisionErr(id string, err error) error {
	switch {
	case errors.Is(err, suggestion.ErrNotFound):
		return mcpErr(fmt.Sprintf("Suggestion %s not found. Use redline_list to see the current batch.", id))
	case errors.Is(err, suggestion.ErrInvalidTransition):
		return mcpErr(fmt.Sprintf("Suggestion %s is already decided.", id))
	default:
		return mcpErr(fmt.Sprintf("Failed to decide suggestion %s.", id))
	}
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	return mcp.ServeWebSocket(ctx, s.mcpServer, addr)
}
