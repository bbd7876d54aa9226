package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/haasonsaas/hiveswarm/internal/bridge"
)

// Server is the mirror image of the control bridge's Unix-socket
// Server: instead of accepting the bridge's own action/params protocol
// directly, it speaks MCP over stdin/stdout and translates each
// tools/call into one bridge.Command against the same Handlers the
// socket server uses, so the two front ends share every action
// implementation.
type Server struct {
	handlers *bridge.Handlers
	logger   *slog.Logger
	tools    []MCPTool
	byName   map[string]toolDef
}

// NewServer builds an MCP server fronting handlers.
func NewServer(handlers *bridge.Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	tools, byName := buildTools()
	return &Server{
		handlers: handlers,
		logger:   logger.With("component", "mcp"),
		tools:    tools,
		byName:   byName,
	}
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// responses to w until r reaches EOF or ctx is cancelled. Requests are
// handled one at a time, in arrival order.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeResponse(writer, &JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   &JSONRPCError{Code: ErrCodeParseError, Message: "invalid JSON-RPC request"},
			}); writeErr != nil {
				return writeErr
			}
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			continue // notification: no response expected
		}
		if err := writeResponse(writer, resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.reply(req, InitializeResult{
			ProtocolVersion: "2024-11-05",
			Capabilities:    Capabilities{Tools: &ToolsCapability{}},
			ServerInfo:      ServerInfo{Name: "hiveswarmd", Version: "1.0.0"},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.reply(req, ListToolsResult{Tools: s.tools})
	case "tools/call":
		return s.callTool(ctx, req)
	default:
		return s.errorReply(req, ErrCodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

func (s *Server) callTool(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorReply(req, ErrCodeInvalidParams, "invalid tools/call params")
	}

	tool, ok := s.byName[params.Name]
	if !ok {
		return s.errorReply(req, ErrCodeToolNotFound, fmt.Sprintf("unknown tool %q", params.Name))
	}

	action := tool.action
	if action == "" {
		action = statusAction(params.Arguments)
	}

	s.logger.Debug("tool call", "tool", params.Name, "action", action)
	resp := s.handlers.Handle(ctx, bridge.Command{Action: action, Params: params.Arguments})
	return s.reply(req, toolCallResultFrom(resp))
}

func toolCallResultFrom(resp bridge.Response) ToolCallResult {
	text, err := json.Marshal(resp)
	if err != nil {
		return ToolCallResult{
			Content: []ToolResultContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		}
	}
	_, isErr := resp["error"]
	return ToolCallResult{Content: []ToolResultContent{{Type: "text", Text: string(text)}}, IsError: isErr}
}

func (s *Server) reply(req *JSONRPCRequest, result any) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) errorReply(req *JSONRPCRequest, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &JSONRPCError{Code: code, Message: message}}
}

func writeResponse(w *bufio.Writer, resp *JSONRPCResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		payload, _ = json.Marshal(&JSONRPCResponse{
			JSONRPC: resp.JSONRPC,
			ID:      resp.ID,
			Error:   &JSONRPCError{Code: ErrCodeInternalError, Message: "failed to encode response"},
		})
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
