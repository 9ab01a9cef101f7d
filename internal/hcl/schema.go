package hcl

import "github.com/hashicorp/hcl/v2"

// routesRoot is the first decoding pass: it only picks up `route` blocks so
// their values can be published into the evaluation context used by
// everything else.
type routesRoot struct {
	Routes []*routeBlock `hcl:"route,block"`
	Remain hcl.Body      `hcl:",remain"`
}

// routeBlock represents `route "<name>" { watch = ..., src = ..., dest = ... }`.
// `watch` and `src` accept either a single string or a list of strings.
type routeBlock struct {
	Name      string         `hcl:"name,label"`
	Watch     hcl.Expression `hcl:"watch,optional"`
	Src       hcl.Expression `hcl:"src,optional"`
	Dest      hcl.Expression `hcl:"dest,optional"`
	DeclRange hcl.Range      `hcl:",def_range"`
}

// pipelineRoot is the second decoding pass over whatever the first pass left.
type pipelineRoot struct {
	StateFile *string           `hcl:"state_file,optional"`
	Tasks     []*taskBlock      `hcl:"task,block"`
	Series    []*compositeBlock `hcl:"series,block"`
	Parallel  []*compositeBlock `hcl:"parallel,block"`
	Watches   []*watchBlock     `hcl:"watch,block"`
}

// taskBlock represents a leaf declaration: `task "<kind>" "<name>" { ... }`.
type taskBlock struct {
	Kind            string          `hcl:"kind,label"`
	Name            string          `hcl:"name,label"`
	Description     string          `hcl:"description,optional"`
	Incremental     bool            `hcl:"incremental,optional"`
	ContinueOnError bool            `hcl:"continue_on_error,optional"`
	Arguments       *argumentsBlock `hcl:"arguments,block"`
	DeclRange       hcl.Range       `hcl:",def_range"`
}

// argumentsBlock holds the module-specific arguments, decoded later by the
// module against its own input struct.
type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// compositeBlock represents `series "<name>" { ... }` and `parallel "<name>" { ... }`.
type compositeBlock struct {
	Name        string    `hcl:"name,label"`
	Description string    `hcl:"description,optional"`
	Tasks       []string  `hcl:"tasks"`
	DeclRange   hcl.Range `hcl:",def_range"`
}

// watchBlock represents `watch "<name>" { patterns = [...], task = "...", delay = "200ms" }`.
type watchBlock struct {
	Name     string   `hcl:"name,label"`
	Patterns []string `hcl:"patterns"`
	Task     string   `hcl:"task"`
	Delay    *string  `hcl:"delay,optional"`
}
