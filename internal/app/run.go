package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
)

// Run executes the configured task, or prints the task list or plan.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	switch {
	case a.config.List:
		return a.printTasks()
	case a.config.Plan:
		plan, err := a.runner.Plan(a.config.Task)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(a.outW, plan.String())
		return err
	}

	if a.config.HealthcheckPort > 0 {
		stop, err := a.startHealthCheck(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	a.logger.Info("🚀 Running task", "task", a.config.Task)
	if err := a.runner.Run(ctx, a.config.Task); err != nil {
		return err
	}
	a.logger.Info("🏁 Pipeline finished", "task", a.config.Task)
	return nil
}

func (a *App) printTasks() error {
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	for _, name := range a.runner.Names() {
		t, _ := a.runner.Lookup(name)
		kind := t.Kind().String()
		if len(t.Children()) > 0 {
			kind = fmt.Sprintf("%s %v", kind, t.Children())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, kind, t.Description())
	}
	return tw.Flush()
}
