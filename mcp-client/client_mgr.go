package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"omnitask/service"
	"omnitask/shared"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
)

const (
	clientName    = "omnitask-agent"
	clientVersion = "0.1.0"
)

var ErrDuplicateServer = errors.New("mcp server already exist")

type managedClient struct {
	client  *client.Client
	process *stdioProcess
}

func (m *managedClient) close() error {
	err := m.client.Close()
	if m.process != nil {
		err = errors.Join(err, m.process.Close())
	}
	return err
}

// ClientMgr owns the MCP clients of one agent session. It is not safe for
// concurrent use; every session builds its own.
type ClientMgr struct {
	clientMap map[string]*managedClient
}

func NewclientMgr() *ClientMgr {
	return &ClientMgr{
		clientMap: map[string]*managedClient{},
	}
}

func (mgr *ClientMgr) CloseByName(name string) error {
	c, exist := mgr.clientMap[name]
	if !exist {
		return fmt.Errorf("client %s not exist", name)
	}
	delete(mgr.clientMap, name)
	return c.close()
}

func (mgr *ClientMgr) Close() error {
	var errList []error = nil
	for name, c := range mgr.clientMap {
		err := c.close()
		if err != nil {
			errList = append(errList, fmt.Errorf("close %s: %w", name, err))
		}
	}
	mgr.clientMap = map[string]*managedClient{}
	return errors.Join(errList...)
}

// Servers returns the names of the connected servers.
func (mgr *ClientMgr) Servers() []string {
	names := make([]string, 0, len(mgr.clientMap))
	for name := range mgr.clientMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewMCPClient launches the server described by cfg and connects to it.
func (mgr *ClientMgr) NewMCPClient(ctx context.Context, cfg ServerConfig) error {
	process, tr, err := startProcess(cfg)
	if err != nil {
		return err
	}
	c := client.NewClient(tr)
	err = mgr.register(ctx, &managedClient{client: c, process: process})
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Name, err)
	}
	return nil
}

// Add connects an already constructed, not yet started client.
func (mgr *ClientMgr) Add(ctx context.Context, c *client.Client) error {
	return mgr.register(ctx, &managedClient{client: c})
}

func (mgr *ClientMgr) register(ctx context.Context, mc *managedClient) error {
	err := mc.client.Start(ctx)
	if err != nil {
		return errors.Join(err, mc.close())
	}
	res, err := mc.client.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		return errors.Join(err, mc.close())
	}
	name := res.ServerInfo.Name
	_, exist := mgr.clientMap[name]
	if exist {
		return errors.Join(fmt.Errorf("%w: %s", ErrDuplicateServer, name), mc.close())
	}
	mgr.clientMap[name] = mc
	log.Info().Str("server", name).Str("version", res.ServerInfo.Version).Msg("create mcp client success")
	return nil
}

func (mgr *ClientMgr) LoadAllTools(ctx context.Context) ([]service.ToolEndPoint, error) {
	var endpoint []service.ToolEndPoint
	var errorList []error
	for _, name := range mgr.Servers() {
		res, err := mgr.loadTools(ctx, mgr.clientMap[name].client)
		if err != nil {
			errorList = append(errorList, fmt.Errorf("list tools of %s: %w", name, err))
		} else {
			endpoint = append(endpoint, res...)
		}
	}
	err := errors.Join(errorList...)
	if err != nil {
		return nil, err
	}
	return endpoint, nil
}

func (mgr *ClientMgr) loadTools(ctx context.Context, c *client.Client) ([]service.ToolEndPoint, error) {
	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	endpointList := []service.ToolEndPoint{}
	for _, tool := range res.Tools {
		endpoint := service.ToolEndPoint{
			Name: tool.Name,
			Def:  shared.ConvertToFunctionDefinition(tool),
			Handler: func(ctx context.Context, args string) (string, error) {
				return callTool(ctx, c, tool.Name, args)
			},
		}
		endpointList = append(endpointList, endpoint)
	}
	return endpointList, nil
}

func callTool(ctx context.Context, c *client.Client, name string, args string) (string, error) {
	var arguments any = map[string]any{}
	if strings.TrimSpace(args) != "" {
		if !json.Valid([]byte(args)) {
			return "", fmt.Errorf("invalid json arguments for tool %s", name)
		}
		arguments = json.RawMessage(args)
	}
	res, err := c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: arguments,
		},
	})
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	for _, content := range res.Content {
		text, ok := content.(mcp.TextContent)
		if ok {
			builder.WriteString(text.Text)
			builder.WriteByte('\n')
		}
	}
	if res.IsError {
		return "", errors.New(strings.TrimSpace(builder.String()))
	}
	return builder.String(), nil
}
