package llm

import "strings"

type BlockRole string

const (
	BlockRoleSystem BlockRole = "system"
	BlockRoleUser   BlockRole = "user"
)

// Block is one element of a prompt. Either Text carries literal prompt
// text, or Variable names a node input whose resolved value is
// substituted before the request reaches the provider. Providers only
// ever see text blocks.
type Block struct {
	Role     BlockRole `json:"role"`
	Text     string    `json:"text,omitempty"`
	Variable string    `json:"variable,omitempty"`
}

type Request struct {
	Model           string         `json:"model,omitempty"`
	Blocks          []Block        `json:"blocks"`
	MaxOutputTokens int            `json:"maxOutputTokens,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
	SchemaName      string         `json:"schemaName,omitempty"`
	ResponseSchema  map[string]any `json:"responseSchema,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"inputTokens,omitempty"`
	OutputTokens int `json:"outputTokens,omitempty"`
	TotalTokens  int `json:"totalTokens,omitempty"`
}

type Response struct {
	Text  string `json:"text"`
	Usage *Usage `json:"usage,omitempty"`
}

type StreamChunk struct {
	Text string `json:"text,omitempty"`
	Done bool   `json:"done,omitempty"`
}

// SplitPrompt flattens request blocks into a system prompt and a user
// prompt, preserving block order within each role.
func SplitPrompt(blocks []Block) (system, user string) {
	var sys, usr []string
	for _, b := range blocks {
		if b.Text == "" {
			continue
		}
		if b.Role == BlockRoleSystem {
			sys = append(sys, b.Text)
			continue
		}
		usr = append(usr, b.Text)
	}
	return strings.Join(sys, "\n"), strings.Join(usr, "\n")
}
