// Package mcp serves the portfolio tools and resources to AI agents over the
// Model Context Protocol: JSON-RPC 2.0 on newline-delimited stdio, or one
// message per HTTP request.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/etnz/allocation/tools"
	"github.com/sirupsen/logrus"
)

const serverName = "portfolio-manager"

// Resources is the source of the resources, implemented by *tools.Toolbox.
type Resources interface {
	ListResources(ctx context.Context) ([]tools.ResourceInfo, error)
	ReadResource(ctx context.Context, uri string) (string, error)
}

// Server is an MCP server exposing tools and resources.
type Server struct {
	tools     []tools.Tool
	byName    map[string]tools.Tool
	resources Resources
	log       logrus.FieldLogger
	version   string
}

// ServerOption configures optional server behavior.
type ServerOption func(*Server)

// WithLogger sets the logger. The stdio transport owns stdout, logs must go
// elsewhere.
func WithLogger(log logrus.FieldLogger) ServerOption { return func(s *Server) { s.log = log } }

// WithVersion sets the version announced during initialization.
func WithVersion(v string) ServerOption { return func(s *Server) { s.version = v } }

// NewServer creates a server for a tool registry and a resource source.
func NewServer(registry []tools.Tool, resources Resources, options ...ServerOption) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Server{
		tools:     registry,
		byName:    make(map[string]tools.Tool, len(registry)),
		resources: resources,
		log:       discard,
		version:   "dev",
	}
	for _, t := range registry {
		s.byName[t.Name] = t
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Run processes JSON-RPC requests from input and writes responses to output
// until input reaches EOF or ctx is done. Each message occupies a single
// line. Requests are processed one at a time.
//
// A line longer than maxMessageSize is answered with an invalid request error
// and skipped.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	reader := bufio.NewReader(input)
	encoder := json.NewEncoder(output)

	initialized := false
	for {
		line, err := readMessage(reader)
		if err == io.EOF {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var resp *response
		switch {
		case errors.Is(err, errMessageTooLong):
			s.log.WithField("limit", maxMessageSize).Warn("message too long")
			resp = failure(json.RawMessage("null"), codeInvalidRequest, err.Error())
		case err != nil:
			return err
		case len(line) == 0:
			continue
		default:
			resp = s.handle(ctx, line, &initialized)
		}
		if resp == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("cannot write response: %w", err)
		}
	}
}

var errMessageTooLong = fmt.Errorf("message exceeds %d bytes", maxMessageSize)

// readMessage returns the next line of r without its line ending. A line
// longer than maxMessageSize is consumed and errMessageTooLong returned. It
// returns io.EOF only when no data is left.
func readMessage(r *bufio.Reader) ([]byte, error) {
	var msg []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong && len(msg)+len(chunk) > maxMessageSize+1 {
			tooLong, msg = true, nil
		}
		if !tooLong {
			msg = append(msg, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && (err != io.EOF || (len(msg) == 0 && !tooLong)) {
			return nil, err
		}
		if tooLong {
			return nil, errMessageTooLong
		}
		return bytes.TrimSpace(msg), nil
	}
}

// handle processes one message. It returns nil for notifications.
func (s *Server) handle(ctx context.Context, message []byte, initialized *bool) *response {
	var req request
	if err := json.Unmarshal(message, &req); err != nil {
		return failure(json.RawMessage("null"), codeParseError, "parse error: "+err.Error())
	}
	if req.JSONRPC != "2.0" {
		if req.isNotification() {
			return nil
		}
		return failure(req.ID, codeInvalidRequest, "unsupported JSON-RPC version")
	}
	if req.isNotification() {
		s.log.WithField("method", req.Method).Debug("notification")
		return nil
	}

	start := time.Now()
	resp := s.dispatch(ctx, &req, initialized)
	entry := s.log.WithFields(logrus.Fields{"method": req.Method, "duration": time.Since(start)})
	if resp.Error != nil {
		entry.WithField("error", resp.Error.Message).Warn("request failed")
	} else {
		entry.Debug("request")
	}
	return resp
}

// dispatch routes a request to its handler.
func (s *Server) dispatch(ctx context.Context, req *request, initialized *bool) *response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req, initialized)
	case "ping":
		return result(req.ID, map[string]any{})
	}
	if !*initialized {
		switch req.Method {
		case "tools/list", "tools/call", "resources/list", "resources/templates/list", "resources/read":
			return failure(req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
	}
	switch req.Method {
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return s.handleResourcesList(ctx, req)
	case "resources/templates/list":
		return s.handleResourceTemplatesList(req)
	case "resources/read":
		return s.handleResourcesRead(ctx, req)
	default:
		return failure(req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(req *request, initialized *bool) *response {
	if len(req.Params) == 0 {
		return failure(req.ID, codeInvalidParams, "params required for initialize")
	}
	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}
	*initialized = true
	s.log.WithFields(logrus.Fields{
		"client":           params.ClientInfo.Name,
		"protocol_version": params.ProtocolVersion,
	}).Info("client initialized")

	return result(req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools:     &listCapability{},
			Resources: &listCapability{},
		},
		ServerInfo: serverInfo{Name: serverName, Version: s.version},
		Instructions: "Manage the stock and bond allocation of a user's portfolio. " +
			"Allocations are percentages of the whole portfolio and should total about 100%.",
	})
}

func (s *Server) handleToolsList(req *request) *response {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		descriptions = append(descriptions, toolDescription{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Annotations: annotations(t),
		})
	}
	return result(req.ID, toolsListResult{Tools: descriptions})
}

// annotations returns the behavioral hints of t. Read-only tools are
// idempotent, the others only modify the record of the user they name.
func annotations(t tools.Tool) *toolAnnotations {
	if t.ReadOnly {
		return &toolAnnotations{ReadOnlyHint: boolPtr(true), IdempotentHint: boolPtr(true)}
	}
	return &toolAnnotations{ReadOnlyHint: boolPtr(false), DestructiveHint: boolPtr(false), OpenWorldHint: boolPtr(false)}
}

func boolPtr(v bool) *bool { return &v }

func (s *Server) handleToolsCall(ctx context.Context, req *request) *response {
	if len(req.Params) == 0 {
		return failure(req.ID, codeInvalidParams, "params required for tools/call")
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}
	t, ok := s.byName[params.Name]
	if !ok {
		return failure(req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	res, err := t.Call(ctx, params.Arguments)
	if err != nil {
		s.log.WithFields(logrus.Fields{"tool": t.Name, "error": err.Error()}).Warn("tool failed")
	}
	return result(req.ID, buildToolResult(res, err))
}

// buildToolResult assembles the MCP result of a tool call.
func buildToolResult(res tools.Result, err error) toolsCallResult {
	if err != nil {
		classified := tools.Classify(err)
		return toolsCallResult{
			Content: []contentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
			ErrorInfo: &errorInfo{
				Category:  string(classified.Category),
				Retryable: classified.Retryable(),
			},
		}
	}
	var out toolsCallResult
	if res.Text != "" {
		out.Content = append(out.Content, contentBlock{Type: "text", Text: res.Text})
	}
	if len(res.Image) > 0 {
		out.Content = append(out.Content, contentBlock{
			Type:     "image",
			Data:     base64.StdEncoding.EncodeToString(res.Image),
			MIMEType: res.MIMEType,
		})
	}
	// at least one content block is required.
	if len(out.Content) == 0 {
		out.Content = []contentBlock{{Type: "text"}}
	}
	return out
}

func (s *Server) handleResourcesList(ctx context.Context, req *request) *response {
	infos, err := s.resources.ListResources(ctx)
	if err != nil {
		return failure(req.ID, codeInternalError, "cannot list resources: "+err.Error())
	}
	list := make([]resourceDescription, 0, len(infos))
	for _, info := range infos {
		list = append(list, resourceDescription(info))
	}
	return result(req.ID, resourcesListResult{Resources: list})
}

func (s *Server) handleResourceTemplatesList(req *request) *response {
	var list []resourceTemplate
	for _, t := range tools.ResourceTemplates() {
		list = append(list, resourceTemplate(t))
	}
	return result(req.ID, resourceTemplatesListResult{ResourceTemplates: list})
}

func (s *Server) handleResourcesRead(ctx context.Context, req *request) *response {
	var params resourcesReadParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return failure(req.ID, codeInvalidParams, "invalid resources/read params: "+err.Error())
		}
	}
	if params.URI == "" {
		return failure(req.ID, codeInvalidParams, "uri is required")
	}

	text, err := s.resources.ReadResource(ctx, params.URI)
	if err != nil {
		code := codeInternalError
		switch tools.Classify(err).Category {
		case tools.CategoryNotFound:
			code = codeResourceNotFound
		case tools.CategoryValidation:
			code = codeInvalidParams
		}
		return failure(req.ID, code, err.Error())
	}
	return result(req.ID, resourcesReadResult{Contents: []resourceContent{{
		URI:      params.URI,
		MIMEType: "application/json",
		Text:     text,
	}}})
}

// result returns a JSON-RPC 2.0 success response.
func result(id json.RawMessage, v any) *response {
	return &response{JSONRPC: "2.0", ID: id, Result: v}
}

// failure returns a JSON-RPC 2.0 error response.
func failure(id json.RawMessage, code int, message string) *response {
	return &response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
}
