package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/tool"
)

// Conn is an open connection to a single tool server.
type Conn interface {
	// Tools returns the server's tools under their scoped names.
	Tools() []tool.Tool
	// Close releases the connection.
	Close() error
}

// Connector opens connections to tool servers. Implementations other than
// MCPConnector exist for tests.
type Connector interface {
	Open(ctx context.Context, cfg core.ServerConfig) (Conn, error)
}

// Options configures an MCPConnector.
type Options struct {
	// DialTimeout bounds connect, handshake and tool discovery per server.
	DialTimeout time.Duration
	// ClientName and ClientVersion are advertised during the MCP handshake.
	ClientName    string
	ClientVersion string
	// Logger receives structured connector events.
	Logger logging.Logger
}

// MCPConnector opens MCP connections over streamable HTTP or SSE.
type MCPConnector struct {
	dialTimeout   time.Duration
	clientName    string
	clientVersion string
	logger        logging.Logger
}

// NewConnector constructs an MCPConnector.
func NewConnector(optFns ...func(o *Options)) *MCPConnector {
	opts := Options{
		DialTimeout:   30 * time.Second,
		ClientName:    "parley",
		ClientVersion: "0.1.0",
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MCPConnector{
		dialTimeout:   opts.DialTimeout,
		clientName:    opts.ClientName,
		clientVersion: opts.ClientVersion,
		logger:        logging.OrNoOp(opts.Logger),
	}
}

// Open connects to the server, performs the MCP handshake and discovers its
// tools. The returned Conn must be closed by the caller.
func (c *MCPConnector) Open(ctx context.Context, cfg core.ServerConfig) (Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cl, err := newClient(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "create client for server %s", cfg.ID)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	if err := cl.Start(dialCtx); err != nil {
		return nil, errors.Wrapf(err, "connect to server %s", cfg.ID)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{
		Name:    c.clientName,
		Version: c.clientVersion,
	}
	if _, err := cl.Initialize(dialCtx, initReq); err != nil {
		_ = cl.Close()
		return nil, errors.Wrapf(err, "initialize server %s", cfg.ID)
	}

	listed, err := cl.ListTools(dialCtx, mcpgo.ListToolsRequest{})
	if err != nil {
		_ = cl.Close()
		return nil, errors.Wrapf(err, "list tools on server %s", cfg.ID)
	}

	tools := make([]tool.Tool, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		st, err := newServerTool(cl, cfg.ID, t)
		if err != nil {
			_ = cl.Close()
			return nil, errors.Wrapf(err, "adapt tool %s on server %s", t.Name, cfg.ID)
		}
		tools = append(tools, st)
	}

	c.logger.Info("mcp.connect", "server_id", cfg.ID, "transport", string(cfg.Transport), "tools", len(tools))
	return &mcpConn{client: cl, tools: tools}, nil
}

func newClient(cfg core.ServerConfig) (*mcpclient.Client, error) {
	switch cfg.Transport {
	case core.TransportStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(cfg.Headers))
		}
		return mcpclient.NewStreamableHttpClient(cfg.URL, opts...)
	case core.TransportSSE:
		var opts []transport.ClientOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(cfg.Headers))
		}
		return mcpclient.NewSSEMCPClient(cfg.URL, opts...)
	default:
		return nil, fmt.Errorf("%w: unsupported transport %q", core.ErrInvalidInput, cfg.Transport)
	}
}

type mcpConn struct {
	client *mcpclient.Client
	tools  []tool.Tool
}

func (c *mcpConn) Tools() []tool.Tool { return c.tools }
func (c *mcpConn) Close() error       { return c.client.Close() }

// serverTool adapts one remote MCP tool to the local Tool interface.
type serverTool struct {
	client      *mcpclient.Client
	scopedName  string
	remoteName  string
	description string
	parameters  map[string]any
}

func newServerTool(cl *mcpclient.Client, serverID string, t mcpgo.Tool) (*serverTool, error) {
	params, err := schemaToMap(t.InputSchema)
	if err != nil {
		return nil, err
	}
	return &serverTool{
		client:      cl,
		scopedName:  ScopedName(serverID, t.Name),
		remoteName:  t.Name,
		description: t.Description,
		parameters:  params,
	}, nil
}

func schemaToMap(schema mcpgo.ToolInputSchema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrap(err, "encode input schema")
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode input schema")
	}
	return m, nil
}

func (t *serverTool) Name() string               { return t.scopedName }
func (t *serverTool) Description() string        { return t.description }
func (t *serverTool) Parameters() map[string]any { return t.parameters }

// Call forwards the invocation to the remote server. A result the server
// flags as an error surfaces as an EXECUTION_ERROR with the result text as
// the message.
func (t *serverTool) Call(ctx context.Context, args map[string]any) (any, error) {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = t.remoteName
	req.Params.Arguments = args

	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return nil, tool.NewToolError(t.scopedName, err.Error(), tool.CodeExecution)
	}

	text := contentText(result.Content)
	if result.IsError {
		return nil, tool.NewToolError(t.scopedName, text, tool.CodeExecution)
	}
	return text, nil
}

// contentText flattens the result's content blocks to a single string.
// Non-text blocks appear as inline markers.
func contentText(blocks []mcpgo.Content) string {
	var out string
	for i, block := range blocks {
		if i > 0 {
			out += "\n"
		}
		switch b := block.(type) {
		case mcpgo.TextContent:
			out += b.Text
		case mcpgo.ImageContent:
			out += "[image]"
		case mcpgo.EmbeddedResource:
			out += "[resource]"
		default:
			out += fmt.Sprintf("[%T]", block)
		}
	}
	return out
}

var _ tool.Tool = (*serverTool)(nil)
var _ Connector = (*MCPConnector)(nil)
