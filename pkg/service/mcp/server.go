// Package mcp exposes the activity history as Model Context Protocol tools so that other
// assistants can ask what happened on screen.
package mcp

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/glimpse/pkg/usecase/retrieve"
	"github.com/m-mizutani/glimpse/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolSearchHistory = "search_history"
	ToolRecentContext = "recent_context"

	defaultRecentMinutes = 10
	defaultDays          = 3
)

type searchHistoryParams struct {
	Range         string   `json:"range"`
	N             int      `json:"n,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	IncludeDetail bool     `json:"include_detail,omitempty"`
}

type recentContextParams struct {
	MaxItems    int `json:"max_items,omitempty"`
	DetailLimit int `json:"detail_limit,omitempty"`
}

type Server struct {
	retriever *retrieve.Retriever
	maxChars  int
	version   string
}

type Option func(*Server)

func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates the tool server. maxChars bounds every search_history answer.
func NewServer(retriever *retrieve.Retriever, maxChars int, opts ...Option) *Server {
	s := &Server{
		retriever: retriever,
		maxChars:  maxChars,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func minimum(v float64) *float64 { return &v }

var searchHistorySchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"range": {
			Type:        "string",
			Description: "Time range: recent (last n minutes), today, or days (last n days)",
			Enum:        []any{"recent", "today", "days"},
		},
		"n": {
			Type:        "integer",
			Description: "Minutes for recent, days for days",
			Minimum:     minimum(1),
		},
		"keywords": {
			Type:        "array",
			Description: "Case-insensitive keywords; a record matches if any keyword is found",
			Items:       &jsonschema.Schema{Type: "string"},
		},
		"include_detail": {
			Type:        "boolean",
			Description: "Include the detailed screen description of each record",
		},
	},
	Required: []string{"range"},
}

var recentContextSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"max_items": {
			Type:        "integer",
			Description: "Maximum records to list (1-100)",
		},
		"detail_limit": {
			Type:        "integer",
			Description: "How many of the newest records carry their detail text",
		},
	},
}

// MCPServer builds the SDK server with every tool registered.
func (s *Server) MCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "glimpse",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchHistory,
		Description: "Search the recorded screen activity history and return it as a readable digest",
		InputSchema: searchHistorySchema,
	}, s.searchHistory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRecentContext,
		Description: "List what happened on screen during the last few minutes",
		InputSchema: recentContextSchema,
	}, s.recentContext)

	return server
}

// Run serves the tools over stdin/stdout until ctx is done or the peer disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func toTimeRange(p *searchHistoryParams) (retrieve.TimeRange, error) {
	switch strings.ToLower(p.Range) {
	case "recent":
		if p.N <= 0 {
			return retrieve.Recent(defaultRecentMinutes), nil
		}
		return retrieve.Recent(p.N), nil
	case "today":
		return retrieve.Today(), nil
	case "days":
		if p.N <= 0 {
			return retrieve.Days(defaultDays), nil
		}
		return retrieve.Days(p.N), nil
	default:
		return retrieve.TimeRange{}, goerr.New("unknown range", goerr.V("range", p.Range))
	}
}

func (s *Server) searchHistory(ctx context.Context, req *mcp.CallToolRequest, params *searchHistoryParams) (*mcp.CallToolResult, any, error) {
	tr, err := toTimeRange(params)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.retriever.Search(ctx, &retrieve.Query{
		Range:         tr,
		Keywords:      params.Keywords,
		IncludeDetail: params.IncludeDetail,
	})
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to search history")
	}

	logging.From(ctx).Debug("search_history served",
		"range", tr.Kind.String(),
		"source", result.Source,
		"records", len(result.Records),
	)
	return textResult(result.BuildContext(s.maxChars, params.IncludeDetail)), nil, nil
}

func (s *Server) recentContext(ctx context.Context, req *mcp.CallToolRequest, params *recentContextParams) (*mcp.CallToolResult, any, error) {
	maxItems := params.MaxItems
	if maxItems <= 0 {
		maxItems = 8
	}
	return textResult(s.retriever.RecentContext(ctx, maxItems, params.DetailLimit)), nil, nil
}
