package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/eatingfood142434/Hackthe6ix/runtime/cron"
	"github.com/eatingfood142434/Hackthe6ix/runtimeconfig"
	"github.com/eatingfood142434/Hackthe6ix/state"
	statefactory "github.com/eatingfood142434/Hackthe6ix/state/factory"
	"github.com/eatingfood142434/Hackthe6ix/workflow"
)

func runWorkflow(ctx context.Context, args []string) {
	opts, positional := parseArgs(args)
	inputs, err := resolveInputs(opts, positional)
	if err != nil {
		log.Fatal(err)
	}

	provider, store := buildRuntimeDeps(ctx)
	defer closeStore(store)
	observer, closeObserver := buildObserver()
	defer closeObserver()

	exec, err := buildExecutor(provider, store, observer, opts)
	if err != nil {
		log.Fatalf("failed to create workflow executor: %v", err)
	}
	result, err := exec.Run(ctx, inputs)
	if err != nil {
		log.Fatalf("workflow run failed: %v", err)
	}
	printJSON(result.Outputs)
}

func resumeWorkflow(ctx context.Context, args []string) {
	opts, positional := parseArgs(args)
	if len(positional) < 1 {
		log.Fatal("usage: resume [--workflow=name] <run-id>")
	}
	runID := strings.TrimSpace(positional[0])
	if runID == "" {
		log.Fatal("run-id cannot be empty")
	}

	provider, store := buildRuntimeDeps(ctx)
	defer closeStore(store)
	observer, closeObserver := buildObserver()
	defer closeObserver()

	exec, err := buildExecutor(provider, store, observer, opts)
	if err != nil {
		log.Fatalf("failed to create workflow executor: %v", err)
	}
	result, err := exec.Resume(ctx, runID)
	if err != nil {
		log.Fatalf("workflow resume failed: %v", err)
	}
	printJSON(result.Outputs)
}

func listRuns(ctx context.Context, args []string) {
	sessionID := ""
	if len(args) > 0 {
		sessionID = strings.TrimSpace(args[0])
	}

	store, err := statefactory.FromEnv(ctx)
	if err != nil {
		log.Fatal(err)
	}
	if store == nil {
		log.Fatal("no state backend configured (set WORKFLOW_STATE_BACKEND)")
	}
	defer closeStore(store)

	runs, err := store.ListRuns(ctx, state.ListRunsQuery{SessionID: sessionID, Limit: 100})
	if err != nil {
		log.Fatalf("list runs failed: %v", err)
	}
	sort.Slice(runs, func(i, j int) bool {
		left, right := time.Time{}, time.Time{}
		if runs[i].UpdatedAt != nil {
			left = *runs[i].UpdatedAt
		}
		if runs[j].UpdatedAt != nil {
			right = *runs[j].UpdatedAt
		}
		return left.After(right)
	})
	for _, run := range runs {
		updated := "-"
		if run.UpdatedAt != nil {
			updated = run.UpdatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n", run.RunID, run.SessionID, run.Workflow, run.Status, updated)
	}
}

func listWorkflows() {
	for _, name := range workflow.Names() {
		builder, ok := workflow.Get(name)
		if !ok {
			continue
		}
		fmt.Printf("%-20s %s\n", name, builder.Description())
	}
}

// runScheduler loads cron schedules from the config file and blocks
// until interrupted.
func runScheduler(ctx context.Context, args []string) {
	opts, _ := parseArgs(args)
	if opts.configPath == "" {
		log.Fatal("usage: schedule --config=engine.json")
	}
	cfg, err := runtimeconfig.Load(opts.configPath)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Workflow == "" && cfg.WorkflowFile == "" {
		log.Fatal("config needs a workflow or workflowFile")
	}
	if len(cfg.Schedules) == 0 {
		log.Fatal("config has no schedules")
	}

	provider, store := buildRuntimeDeps(ctx)
	defer closeStore(store)
	observer, closeObserver := buildObserver()
	defer closeObserver()

	scheduler := cron.New(func(jobCfg cron.JobConfig) (string, error) {
		exec, err := buildExecutor(provider, store, observer, cliOptions{
			workflow:     jobCfg.Workflow,
			workflowFile: cfg.WorkflowFile,
			sessionID:    jobCfg.SessionID,
		})
		if err != nil {
			return "", err
		}
		result, err := exec.Run(ctx, jobCfg.Inputs)
		return result.RunID, err
	})

	jobWorkflow := cfg.Workflow
	if jobWorkflow == "" {
		jobWorkflow = cfg.WorkflowFile
	}
	for _, sched := range cfg.Schedules {
		inputs := sched.Inputs
		if inputs == nil {
			inputs = cfg.Inputs
		}
		jobCfg := cron.JobConfig{
			Workflow:  jobWorkflow,
			Inputs:    inputs,
			SessionID: cfg.SessionID,
		}
		if err := scheduler.Add(sched.Name, sched.CronExpr, jobCfg); err != nil {
			log.Fatal(err)
		}
		log.Printf("scheduled job %q (%s)", sched.Name, sched.CronExpr)
	}

	scheduler.Start()
	defer scheduler.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case <-stop:
	}
	log.Println("scheduler stopping")
}

func resolveInputs(opts cliOptions, positional []string) (map[string]any, error) {
	raw := opts.inputsJSON
	if raw == "" && opts.inputsFile != "" {
		data, err := os.ReadFile(opts.inputsFile)
		if err != nil {
			return nil, fmt.Errorf("read inputs file: %w", err)
		}
		raw = string(data)
	}
	if raw == "" && len(positional) > 0 {
		raw = strings.TrimSpace(strings.Join(positional, " "))
	}
	if raw == "" {
		return map[string]any{}, nil
	}
	var inputs map[string]any
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, fmt.Errorf("inputs must be a JSON object: %w", err)
	}
	return inputs, nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode output: %v", err)
	}
	fmt.Println(string(b))
}
