// Package agent defines agents: a named model plus instructions and the tools
// it may call. Instructions are rendered through text/template so context
// variables can be spliced in per run.
package agent

import (
	"strings"
	"text/template"

	"github.com/fogfish/opts"

	"github.com/skeinworks/skein/api"
	"github.com/skeinworks/skein/internal/registry"
	"github.com/skeinworks/skein/tool"
	"github.com/skeinworks/skein/types"
)

var _ api.Agent = (*defaultAgent)(nil)

type defaultAgent struct {
	name              string
	model             api.Model
	instructions      string
	tools             []tool.Definition
	parallelToolCalls bool
}

func (a *defaultAgent) Name() string {
	return a.name
}

func (a *defaultAgent) Model() api.Model {
	return a.model
}

func (a *defaultAgent) Tools() []tool.Definition {
	return a.tools
}

func (a *defaultAgent) ParallelToolCalls() bool {
	return a.parallelToolCalls
}

// RenderInstructions renders the agent's instructions with the provided
// context variables. Plain strings pass through without template parsing.
func (a *defaultAgent) RenderInstructions(cv types.ContextVars) (string, error) {
	if !strings.Contains(a.instructions, "{{") {
		return a.instructions, nil
	}
	return renderTemplate("instructions", a.instructions, cv)
}

func renderTemplate(name, templateStr string, cv types.ContextVars) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, cv); err != nil {
		return "", err
	}

	return buf.String(), nil
}

var (
	Name              = opts.ForName[defaultAgent, string]("name")
	Model             = opts.ForName[defaultAgent, api.Model]("model")
	Instructions      = opts.ForName[defaultAgent, string]("instructions")
	ParallelToolCalls = opts.ForName[defaultAgent, bool]("parallelToolCalls")
)

func Tools(tool tool.Definition, extraTools ...tool.Definition) opts.Option[defaultAgent] {
	return opts.Type[defaultAgent](func(a *defaultAgent) error {
		a.tools = append(a.tools, tool)
		a.tools = append(a.tools, extraTools...)
		return nil
	})
}

// New creates an agent. A model must be supplied before the agent is run.
func New(options ...opts.Option[defaultAgent]) api.Agent {
	agent := &defaultAgent{parallelToolCalls: true}
	if err := opts.Apply(agent, options); err != nil {
		panic(err)
	}
	Add(agent)
	return agent
}

var agents = registry.New[api.Agent]()

// Add registers an agent under its name so tools that return agents can be
// resolved later.
func Add(agent api.Agent) {
	agents.Add(agent.Name(), agent)
}

// Get looks up a previously registered agent.
func Get(name string) (api.Agent, bool) {
	return agents.Get(name)
}

// Del removes an agent from the registry.
func Del(name string) {
	agents.Del(name)
}
