package cli

import (
	"fmt"
	"strings"

	"github.com/eatingfood142434/Hackthe6ix/workflow"
)

func printUsage() {
	fmt.Println("Workflow Engine CLI")
	fmt.Println("Usage:")
	fmt.Println("  workflow-engine run [--workflow=vuln-scan] [--inputs-file=tree.json] [--session=id]")
	fmt.Println("  workflow-engine run --workflow-file=./workflow.json --inputs='{\"subject\":\"...\"}'")
	fmt.Println("  workflow-engine resume [--workflow=vuln-scan] <run-id>")
	fmt.Println("  workflow-engine runs [session-id]")
	fmt.Println("  workflow-engine workflows")
	fmt.Println("  workflow-engine schedule --config=engine.json")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --workflow=NAME        Registered workflow name")
	fmt.Println("  --workflow-file=PATH   Workflow definition loaded from a JSON file")
	fmt.Println("  --inputs=JSON          Workflow inputs as an inline JSON object")
	fmt.Println("  --inputs-file=PATH     Workflow inputs read from a JSON file")
	fmt.Println("  --session=ID           Session the run is grouped under")
	fmt.Println()
	fmt.Printf("  available workflows: %s\n", strings.Join(workflow.Names(), ", "))
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  WORKFLOW_PROVIDER        openai (default), anthropic, or gemini")
	fmt.Println("  WORKFLOW_NAME            Default workflow name")
	fmt.Println("  WORKFLOW_STATE_BACKEND   sqlite (default), redis, or none")
	fmt.Println("  WORKFLOW_SQLITE_PATH     SQLite database path")
	fmt.Println("  WORKFLOW_REDIS_ADDR      Redis address for the redis backend")
	fmt.Println("  WORKFLOW_TRACE_ENABLED   Emit OpenTelemetry spans for run events")
}
