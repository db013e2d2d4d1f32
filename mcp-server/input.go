package mcpserver

// InputSchema is the argument object of the OmniTask tool.
type InputSchema struct {
	Prompt      string `json:"prompt" jsonschema_description:"Task management request in natural language"`
	ProjectRoot string `json:"projectRoot,omitempty" jsonschema_description:"Project directory whose tasks the agent manages"`
	File        string `json:"file,omitempty" jsonschema_description:"File the request refers to"`
}

func (in InputSchema) PromptText() string {
	return in.Prompt
}

// ProjectRootValue is nil when no root was given, so the configured root is used.
func (in InputSchema) ProjectRootValue() any {
	if in.ProjectRoot == "" {
		return nil
	}
	return in.ProjectRoot
}
