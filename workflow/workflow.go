// Package workflow keeps a process-wide registry of workflow builders
// so runtimes can start any registered workflow by name.
package workflow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/eatingfood142434/Hackthe6ix/graph"
	"github.com/eatingfood142434/Hackthe6ix/llm"
	"github.com/eatingfood142434/Hackthe6ix/state"
)

type Builder interface {
	Name() string
	Description() string
	NewExecutor(provider llm.Provider, store state.Store, sessionID string) (*graph.Executor, error)
}

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

func Register(b Builder) error {
	if b == nil {
		return fmt.Errorf("workflow builder is nil")
	}
	name := b.Name()
	if name == "" {
		return fmt.Errorf("workflow name is required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := builders[name]; exists {
		return fmt.Errorf("workflow %q already registered", name)
	}
	builders[name] = b
	return nil
}

func MustRegister(b Builder) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

func Get(name string) (Builder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := builders[name]
	return b, ok
}

func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(builders))
	for name := range builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
