package cli

type cliOptions struct {
	workflow     string
	workflowFile string
	sessionID    string
	inputsJSON   string
	inputsFile   string
	configPath   string
}
