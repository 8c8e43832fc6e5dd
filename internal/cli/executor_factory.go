package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/eatingfood142434/Hackthe6ix/graph"
	"github.com/eatingfood142434/Hackthe6ix/llm"
	"github.com/eatingfood142434/Hackthe6ix/observe"
	observeotel "github.com/eatingfood142434/Hackthe6ix/observe/otel"
	providerfactory "github.com/eatingfood142434/Hackthe6ix/providers/factory"
	"github.com/eatingfood142434/Hackthe6ix/state"
	statefactory "github.com/eatingfood142434/Hackthe6ix/state/factory"
	"github.com/eatingfood142434/Hackthe6ix/workflow"
	"github.com/eatingfood142434/Hackthe6ix/workflows/vulnscan"
)

const defaultWorkflow = vulnscan.Name

func buildRuntimeDeps(ctx context.Context) (llm.Provider, state.Store) {
	provider, err := providerfactory.FromEnv(ctx)
	if err != nil {
		log.Fatal(err)
	}
	store, err := statefactory.FromEnv(ctx)
	if err != nil {
		log.Fatal(err)
	}
	return provider, store
}

func buildExecutor(provider llm.Provider, store state.Store, observer observe.Sink, opts cliOptions) (*graph.Executor, error) {
	var (
		builder workflow.Builder
		err     error
	)
	if opts.workflowFile != "" {
		builder, err = workflow.NewFileBuilderFromPath(opts.workflowFile)
		if err != nil {
			return nil, fmt.Errorf("load workflow file: %w", err)
		}
	} else {
		name := workflowName(opts)
		var ok bool
		builder, ok = workflow.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown workflow %q (available: %s)", name, strings.Join(workflow.Names(), ", "))
		}
	}

	exec, err := builder.NewExecutor(provider, store, opts.sessionID)
	if err != nil {
		return nil, err
	}
	if observer != nil {
		exec.SetObserver(observer)
	}
	return exec, nil
}

func workflowName(opts cliOptions) string {
	name := strings.TrimSpace(opts.workflow)
	if name == "" {
		name = strings.TrimSpace(os.Getenv("WORKFLOW_NAME"))
	}
	if name == "" {
		name = defaultWorkflow
	}
	return name
}

func buildObserver() (observe.Sink, func()) {
	if !parseBoolEnv("WORKFLOW_TRACE_ENABLED", false) {
		return observe.NoopSink{}, func() {}
	}
	sink := observeotel.NewSink(otel.GetTracerProvider())
	async := observe.NewAsyncSink(sink, 256)
	return async, func() { async.Close() }
}
