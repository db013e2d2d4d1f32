package shared

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai"
)

func ConvertToMcpTool(def openai.FunctionDefinition) (mcp.Tool, error) {

	data, err := json.Marshal(def.Parameters)
	if err != nil {
		return mcp.Tool{}, err
	}

	tool := mcp.NewToolWithRawSchema(def.Name, def.Description, data)
	return tool, nil
}

// ConvertToFunctionDefinition exposes a tool listed by an MCP server to the
// chat model. The raw schema wins when the server sent one.
func ConvertToFunctionDefinition(tool mcp.Tool) openai.FunctionDefinition {
	var params json.RawMessage
	if len(tool.RawInputSchema) > 0 {
		params = tool.RawInputSchema
	} else {
		data, err := json.Marshal(tool.InputSchema)
		if err != nil || string(data) == "null" {
			data = []byte(`{"type":"object","properties":{}}`)
		}
		params = data
	}
	return openai.FunctionDefinition{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters:  params,
	}
}
