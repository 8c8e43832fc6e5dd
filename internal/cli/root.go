package cli

import (
	"context"
	"strings"
)

func Run(ctx context.Context, args []string) {
	if len(args) < 1 {
		printUsage()
		return
	}

	switch strings.TrimSpace(args[0]) {
	case "run":
		runWorkflow(ctx, args[1:])
	case "resume":
		resumeWorkflow(ctx, args[1:])
	case "runs":
		listRuns(ctx, args[1:])
	case "workflows":
		listWorkflows()
	case "schedule":
		runScheduler(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
	default:
		runWorkflow(ctx, args)
	}
}
