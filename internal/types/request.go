package types

// ExecuteRequest represents a tool execution request
type ExecuteRequest struct {
	ToolID  string                 `json:"tool_id" binding:"required"`
	Params  map[string]interface{} `json:"params" binding:"required"`
	AgentID *string                `json:"agent_id,omitempty"`
}
