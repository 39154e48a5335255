package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/store"
)

const (
	// MCPVersion is the protocol version we support.
	MCPVersion = "2024-11-05"

	// ServerName is the name of this MCP server.
	ServerName = "lrag"

	// ServerVersion is the version of this server.
	ServerVersion = "1.0.0"
)

// maxLineSize bounds a single JSON-RPC message.
const maxLineSize = 4 << 20

// Server is the MCP server for lrag.
type Server struct {
	searcher *search.Searcher
	qa       *llm.QAService
	topK     int

	// Stdin/stdout for communication
	reader *bufio.Reader
	writer io.Writer

	// State
	initialized bool
}

// NewServer creates a new MCP server reading stdin and writing stdout.
// qa may be nil, in which case the ask tool reports that no model is configured.
func NewServer(searcher *search.Searcher, qa *llm.QAService, topK int) *Server {
	if topK <= 0 {
		topK = search.DefaultTopK
	}
	return &Server{
		searcher: searcher,
		qa:       qa,
		topK:     topK,
		reader:   bufio.NewReaderSize(os.Stdin, 64*1024),
		writer:   os.Stdout,
	}
}

// SetIO replaces the transport streams.
func (s *Server) SetIO(r io.Reader, w io.Writer) {
	s.reader = bufio.NewReaderSize(r, 64*1024)
	s.writer = w
}

// Run processes requests until EOF or until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Info("MCP server starting", "documents", s.searcher.Store().Len())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				log.Info("MCP server received EOF, shutting down")
				return nil
			}
			return fmt.Errorf("failed to read request: %w", err)
		}
		if len(line) > maxLineSize {
			s.sendError(nil, ErrorCodeInvalidRequest, "Request too large", strconv.Itoa(len(line)))
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, ErrorCodeParse, "Parse error", err.Error())
			continue
		}

		s.handleRequest(ctx, req)
	}
}

// handleRequest processes a single MCP request.
func (s *Server) handleRequest(ctx context.Context, req Request) {
	log.Debug("Received request", "method", req.Method, "id", req.ID)

	var result any
	var err error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized", "notifications/initialized":
		s.initialized = true
		log.Info("MCP server initialized")
		return
	case "tools/list":
		result = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(ctx, req.Params)
	case "ping":
		result = map[string]any{}
	default:
		if req.IsNotification() {
			log.Debug("Ignoring notification", "method", req.Method)
			return
		}
		s.sendError(req.ID, ErrorCodeMethodNotFound, "Method not found", req.Method)
		return
	}

	if err != nil {
		s.sendError(req.ID, ErrorCodeInvalidParams, "Invalid params", err.Error())
		return
	}

	s.sendResult(req.ID, result)
}

// handleInitialize handles the initialize request.
func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, error) {
	var p InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}

	log.Info("Initializing MCP server",
		"clientName", p.ClientInfo.Name,
		"clientVersion", p.ClientInfo.Version,
		"protocolVersion", p.ProtocolVersion,
	)

	return &InitializeResult{
		ProtocolVersion: MCPVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}, nil
}

// handleListTools returns the list of available tools.
func (s *Server) handleListTools() *ListToolsResult {
	return &ListToolsResult{Tools: []Tool{
		{
			Name:        "lrag_search",
			Description: "Find the stored passages most similar to a natural language query.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {
						Type:        "string",
						Description: "The search query in natural language",
					},
					"limit": {
						Type:        "number",
						Description: "Maximum number of passages to return (0 or omitted uses the default)",
						Default:     s.topK,
						Minimum:     bound(0),
					},
					"min_score": {
						Type:        "number",
						Description: "Drop passages scoring below this cosine similarity",
						Default:     0.0,
						Minimum:     bound(-1),
						Maximum:     bound(1),
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "lrag_ask",
			Description: "Answer a question from the stored passages using the configured language model.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"question": {
						Type:        "string",
						Description: "The question to answer",
					},
					"top_k": {
						Type:        "number",
						Description: "Number of passages used as context (0 or omitted uses the default)",
						Default:     s.topK,
						Minimum:     bound(0),
					},
				},
				Required: []string{"question"},
			},
		},
		{
			Name:        "lrag_ingest",
			Description: "Add a passage to the knowledge base so later searches can find it.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"text": {
						Type:        "string",
						Description: "The passage text",
					},
					"source": {
						Type:        "string",
						Description: "Where the passage came from",
					},
				},
				Required: []string{"text"},
			},
		},
	}}
}

// handleCallTool executes a tool and returns the result.
// Tool failures are reported in the result, not as JSON-RPC errors.
func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (*CallToolResult, error) {
	var p CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	log.Debug("Calling tool", "name", p.Name, "arguments", p.Arguments)

	switch p.Name {
	case "lrag_search":
		return s.toolSearch(ctx, p.Arguments), nil
	case "lrag_ask":
		return s.toolAsk(ctx, p.Arguments), nil
	case "lrag_ingest":
		return s.toolIngest(ctx, p.Arguments), nil
	default:
		return TextResult(fmt.Sprintf("Unknown tool: %s", p.Name), true), nil
	}
}

// toolSearch returns the ranked passages for a query.
func (s *Server) toolSearch(ctx context.Context, args map[string]any) *CallToolResult {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return TextResult("Error: query is required", true)
	}

	opts := search.SearchOptions{
		TopK:     intArg(args, "limit", s.topK),
		MinScore: floatArg(args, "min_score", 0),
	}
	if opts.TopK < 0 {
		return TextResult("Error: limit must not be negative", true)
	}
	if opts.TopK == 0 {
		opts.TopK = s.topK
	}

	results, err := s.searcher.Search(ctx, query, opts)
	if err != nil {
		return TextResult(fmt.Sprintf("Error: search failed: %v", err), true)
	}

	if len(results) == 0 {
		return TextResult("No results found.", false)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s (%s) - %.1f%% match\n", i+1, r.Document.ID, sourceLabel(r.Document.Source), r.Score*100)
		sb.WriteString(r.Document.Text)
		sb.WriteString("\n\n")
	}

	return TextResult(sb.String(), false)
}

// CouldNotAnswer is the tool error shown when answering fails. The cause is logged.
const CouldNotAnswer = "Error: could not answer the question"

// toolAsk runs the answer orchestrator.
func (s *Server) toolAsk(ctx context.Context, args map[string]any) *CallToolResult {
	if s.qa == nil {
		return TextResult("Error: no language model is configured", true)
	}

	question, _ := args["question"].(string)
	if strings.TrimSpace(question) == "" {
		return TextResult("Error: question is required", true)
	}

	topK := intArg(args, "top_k", s.topK)
	if topK <= 0 {
		topK = s.topK
	}

	result, err := s.qa.Answer(ctx, question, llm.QAOptions{TopK: topK})
	if err != nil {
		var genErr *llm.GenerationError
		if errors.As(err, &genErr) {
			log.Error("Answer generation failed", "sources", len(genErr.Sources), "error", genErr.Err)
		} else {
			log.Error("Answer retrieval failed", "error", err)
		}
		return TextResult(CouldNotAnswer, true)
	}

	var sb strings.Builder
	sb.WriteString(result.Answer)
	if len(result.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, r := range result.Sources {
			fmt.Fprintf(&sb, "[%d] %s (%s) - %.1f%% match\n", i+1, r.Document.ID, sourceLabel(r.Document.Source), r.Score*100)
		}
	}

	return TextResult(sb.String(), false)
}

// toolIngest appends a passage to the store.
func (s *Server) toolIngest(ctx context.Context, args map[string]any) *CallToolResult {
	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return TextResult("Error: text is required", true)
	}
	source, _ := args["source"].(string)

	id, err := s.searcher.Ingest(ctx, text, source)
	if err != nil {
		if errors.Is(err, store.ErrCapacityExceeded) {
			return TextResult("Error: the document store is full", true)
		}
		return TextResult(fmt.Sprintf("Error: %v", err), true)
	}

	return TextResult(fmt.Sprintf("Added %s (%d documents stored)", id, s.searcher.Store().Len()), false)
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func floatArg(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func sourceLabel(source string) string {
	if source == "" {
		return "unknown"
	}
	return source
}

// sendResult sends a successful response.
func (s *Server) sendResult(id any, result any) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// sendError sends an error response.
func (s *Server) sendError(id any, code int, message, data string) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

// send writes a response as a single line.
func (s *Server) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to marshal response", "error", err)
		return
	}
	fmt.Fprintln(s.writer, string(data))
}
