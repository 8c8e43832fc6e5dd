package cli

import (
	"log"
	"os"
	"strings"

	"github.com/eatingfood142434/Hackthe6ix/internal/config"
	"github.com/eatingfood142434/Hackthe6ix/state"
)

func parseArgs(args []string) (cliOptions, []string) {
	opts := cliOptions{}
	positional := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--workflow="):
			opts.workflow = strings.TrimSpace(strings.TrimPrefix(arg, "--workflow="))
		case strings.HasPrefix(arg, "--workflow-file="):
			opts.workflowFile = strings.TrimSpace(strings.TrimPrefix(arg, "--workflow-file="))
		case strings.HasPrefix(arg, "--session="):
			opts.sessionID = strings.TrimSpace(strings.TrimPrefix(arg, "--session="))
		case strings.HasPrefix(arg, "--inputs="):
			opts.inputsJSON = strings.TrimSpace(strings.TrimPrefix(arg, "--inputs="))
		case strings.HasPrefix(arg, "--inputs-file="):
			opts.inputsFile = strings.TrimSpace(strings.TrimPrefix(arg, "--inputs-file="))
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimSpace(strings.TrimPrefix(arg, "--config="))
		default:
			positional = append(positional, arg)
		}
	}
	return opts, positional
}

func parseBoolEnv(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return config.ParseBoolString(value, fallback)
}

func closeStore(store state.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Printf("state store close failed: %v", err)
	}
}
