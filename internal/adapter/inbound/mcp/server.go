package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonny/askuser-bot/internal/domain/port/inbound"
	"github.com/jonny/askuser-bot/pkg/version"
)

// Server exposes the capabilities as MCP tools. Framing, the handshake,
// ping and tools/list belong to the SDK; this type owns argument decoding,
// defaults and the result envelope. A Server serves one connection.
type Server struct {
	caps   inbound.Capabilities
	srv    *mcpsdk.Server
	logger *slog.Logger

	// lifetime ends when the client stops sending; every tool call is
	// cancelled with it.
	lifetime context.Context
	end      context.CancelFunc

	mu     sync.Mutex
	closed bool
	calls  sync.WaitGroup
}

func NewServer(caps inbound.Capabilities, logger *slog.Logger) *Server {
	lifetime, end := context.WithCancel(context.Background())
	s := &Server{
		caps:     caps,
		srv:      mcpsdk.NewServer(&mcpsdk.Implementation{Name: version.Name, Version: version.Version}, nil),
		logger:   logger,
		lifetime: lifetime,
		end:      end,
	}
	for _, t := range registry() {
		s.srv.AddTool(t.def, s.handler(t))
	}
	return s
}

// Run serves t until the client goes away or ctx is done, then cancels and
// drains the tool calls still in flight. A client hanging up is not an error.
func (s *Server) Run(ctx context.Context, t mcpsdk.Transport) error {
	err := s.srv.Run(ctx, &watchedTransport{Transport: t, onReadErr: s.end})
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.end()
	s.calls.Wait()

	if errors.Is(err, io.EOF) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) handler(t tool) mcpsdk.ToolHandler {
	name := t.def.Name
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		if !s.track() {
			return nil, context.Canceled
		}
		defer s.calls.Done()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(s.lifetime, cancel)
		defer stop()

		logger := s.logger.With("tool", name)
		logger.Debug("tool call started")

		result, errMsg, err := t.call(ctx, s.caps, req.Params.Arguments)
		if err != nil {
			var ae *argError
			if !errors.As(err, &ae) {
				return nil, err
			}
			logger.Info("tool call rejected", "error", ae.msg)
			return textResult(map[string]string{"error": ae.msg}, true)
		}

		if errMsg != "" {
			logger.Info("tool call failed", "error", errMsg)
		} else {
			logger.Debug("tool call finished")
		}
		return textResult(result, errMsg != "")
	}
}

func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.calls.Add(1)
	return true
}

// textResult carries v as JSON in a single text block.
func textResult(v any, isError bool) (*mcpsdk.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(b)}},
		IsError: isError,
	}, nil
}

// watchedTransport reports the first failed read on its connection, which
// for stdio means the client closed its end.
type watchedTransport struct {
	mcpsdk.Transport
	onReadErr func()
}

func (t *watchedTransport) Connect(ctx context.Context) (mcpsdk.Connection, error) {
	conn, err := t.Transport.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &watchedConn{Connection: conn, onReadErr: t.onReadErr}, nil
}

type watchedConn struct {
	mcpsdk.Connection
	onReadErr func()
}

func (c *watchedConn) Read(ctx context.Context) (jsonrpc.Message, error) {
	msg, err := c.Connection.Read(ctx)
	if err != nil {
		c.onReadErr()
	}
	return msg, err
}
