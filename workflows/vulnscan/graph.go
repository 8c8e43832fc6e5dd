// Package vulnscan wires the repository vulnerability scanning
// pipeline: flatten the uploaded file tree, classify every file by
// security risk, generate fixes for the findings, and publish both the
// classification and the fixes as workflow outputs.
package vulnscan

import (
	"fmt"
	"time"

	"github.com/eatingfood142434/Hackthe6ix/graph"
	"github.com/eatingfood142434/Hackthe6ix/llm"
	"github.com/eatingfood142434/Hackthe6ix/observe"
	"github.com/eatingfood142434/Hackthe6ix/state"
)

const defaultScanModel = "o4-mini"

const scannerPrompt = `You are a security-focused file analyzer. Given a list of files from a repository, classify each file by:

1. **Security Risk Level**: HIGH, MEDIUM, LOW, IGNORE
2. **File Type**: WEB_APP, API, CONFIG, DATABASE, FRONTEND, OTHER
3. **Language**: Python, JavaScript, PHP, SQL, etc.

Focus on files that typically contain vulnerabilities:
- Web application files (.py, .js, .php)
- Configuration files (.env, .yml, .json)
- Database files (.sql, .db)
- Template files (.html with server-side code)

Understand what each piece of code does on the entire codebase and find any higher-level vulnerabilities as well. These vulnerabilities may occur from interactions from multiple files:
- Incorrect authorization handling
- Improper role checking

IGNORE: Images, static assets, documentation, compiled binaries

Input:
`

const patcherPrompt = `You are a senior security engineer. For each vulnerability identified, generate secure code fixes.

FIXING GUIDELINES:

SQL Injection: Use parameterized queries/prepared statements
NoSQL Injection: Use proper query builders, avoid $where with user input
Code Injection: Never use exec/eval with user input, use safe alternatives
Command Injection: Use subprocess with shell=False, validate inputs
Authentication: Implement proper session management, hash passwords
Input Validation: Add sanitization, use allowlists, validate data types
High Level Issues: Proper handling of tokens and roles, etc.

Requirements:

Provide complete, working code replacements
Maintain original functionality while fixing security issues
Add security comments explaining the fix
Follow language-specific security best practices

Vulnerabilities to fix: `

type Config struct {
	Store     state.Store
	SessionID string
	Model     string
	Timeout   time.Duration
	Observer  observe.Sink

	// OnSchemaMismatch receives validation failures from either prompt
	// node before the engine reacts to the missing structured output.
	OnSchemaMismatch func(node string, err error)
}

func NewExecutor(provider llm.Provider, cfg Config) (*graph.Executor, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultScanModel
	}

	scanner := &graph.PromptNode{
		Provider:        provider,
		Model:           model,
		MaxOutputTokens: 32768,
		SchemaName:      "Scanner",
		Schema:          ScannerSchema(),
		Timeout:         cfg.Timeout,
		Blocks: []llm.Block{
			{Role: llm.BlockRoleUser, Text: scannerPrompt},
			{Role: llm.BlockRoleUser, Variable: "fileList"},
		},
	}
	patcher := &graph.PromptNode{
		Provider:        provider,
		Model:           model,
		MaxOutputTokens: 32768,
		SchemaName:      "Fixes",
		Schema:          FixesSchema(),
		Timeout:         cfg.Timeout,
		Blocks: []llm.Block{
			{Role: llm.BlockRoleSystem, Text: patcherPrompt},
			{Role: llm.BlockRoleUser, Variable: "FileRisk"},
		},
	}
	if cfg.OnSchemaMismatch != nil {
		onMismatch := cfg.OnSchemaMismatch
		scanner.OnSchemaMismatch = func(err error) { onMismatch("vuln-scanner", err) }
		patcher.OnSchemaMismatch = func(err error) { onMismatch("patcher", err) }
	}

	g := graph.New(Name)
	g.AddNode("file-list", NewFileListNode())
	g.AddNode("vuln-scanner", scanner)
	g.AddNode("patcher", patcher)
	g.AddNode("results", &graph.OutputNode{Name: "results"})
	g.AddNode("scanned-files", &graph.OutputNode{Name: "scanned-files"})

	g.Chain("file-list", "vuln-scanner")
	g.FanOut("vuln-scanner", "patcher", "scanned-files")
	g.Chain("patcher", "results")

	g.BindInput("file-list", "fileTree", graph.FromWorkflowInput("fileTree"))
	g.BindInput("vuln-scanner", "fileList", graph.FromNodeOutput("file-list", "result"))
	g.BindInput("patcher", "FileRisk", graph.FromNodeOutput("vuln-scanner", "json"))
	g.BindInput("scanned-files", "value", graph.FromNodeOutput("vuln-scanner", "json"))
	g.BindInput("results", "value", graph.FromNodeOutput("patcher", "json"))

	opts := []graph.ExecutorOption{
		graph.WithStore(cfg.Store),
		graph.WithFailurePolicy(graph.ContinueOnError),
	}
	if cfg.SessionID != "" {
		opts = append(opts, graph.WithSessionID(cfg.SessionID))
	}
	if cfg.Observer != nil {
		opts = append(opts, graph.WithObserver(cfg.Observer))
	}
	return graph.NewExecutor(g, opts...)
}
