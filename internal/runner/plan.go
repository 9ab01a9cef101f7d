package runner

import (
	"fmt"
	"strings"

	"github.com/RoJaebl/portfolio/internal/dag"
	"github.com/RoJaebl/portfolio/internal/task"
)

// Plan is the resolved execution tree of a task. A child shared by several
// composites appears once under each of them and runs once per appearance.
type Plan struct {
	Name     string
	Task     *task.Task
	Children []*Plan
}

// Plan resolves name into its execution tree without running anything.
// It fails with an UnknownTaskError if name or any reachable child is not
// registered, and with ErrCycle if the composites reference each other
// cyclically.
func (r *Runner) Plan(name string) (*Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, ok := r.tasks[name]
	if !ok {
		return nil, &UnknownTaskError{Name: name}
	}

	g := dag.New()
	g.AddNode(name)
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range r.tasks[cur].Children() {
			if _, ok := r.tasks[child]; !ok {
				return nil, &UnknownTaskError{Name: child, Parent: cur}
			}
			if !g.HasNode(child) {
				g.AddNode(child)
				queue = append(queue, child)
			}
			if err := g.AddEdge(cur, child); err != nil {
				return nil, err
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	return r.expand(name, root), nil
}

// expand builds the tree. Callers hold mu and have ruled out cycles.
func (r *Runner) expand(name string, t *task.Task) *Plan {
	p := &Plan{Name: name, Task: t}
	for _, child := range t.Children() {
		p.Children = append(p.Children, r.expand(child, r.tasks[child]))
	}
	return p
}

// Leaves returns the leaf names of the plan in execution-list order.
func (p *Plan) Leaves() []string {
	if p.Task.Kind() == task.LeafKind {
		return []string{p.Name}
	}
	var out []string
	for _, c := range p.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// String renders the tree, one task per line.
func (p *Plan) String() string {
	var b strings.Builder
	p.write(&b, 0)
	return b.String()
}

func (p *Plan) write(b *strings.Builder, depth int) {
	label := p.Task.Kind().String()
	if p.Task.IsIncremental() {
		label += ", incremental"
	}
	fmt.Fprintf(b, "%s%s (%s)\n", strings.Repeat("  ", depth), p.Name, label)
	for _, c := range p.Children {
		c.write(b, depth+1)
	}
}
