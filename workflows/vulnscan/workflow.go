package vulnscan

import (
	"github.com/eatingfood142434/Hackthe6ix/graph"
	"github.com/eatingfood142434/Hackthe6ix/llm"
	"github.com/eatingfood142434/Hackthe6ix/state"
	"github.com/eatingfood142434/Hackthe6ix/workflow"
)

const Name = "vuln-scan"

type Builder struct{}

func (Builder) Name() string { return Name }

func (Builder) Description() string {
	return "Scans an uploaded repository file tree for vulnerabilities and generates secure code fixes."
}

func (Builder) NewExecutor(provider llm.Provider, store state.Store, sessionID string) (*graph.Executor, error) {
	return NewExecutor(provider, Config{Store: store, SessionID: sessionID})
}

func init() {
	workflow.MustRegister(Builder{})
}
