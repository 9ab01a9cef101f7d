package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
)

// ValidateModel checks that every task kind in the pipeline has a registered
// implementation and that singleton kinds are declared at most once.
func (r *Registry) ValidateModel(ctx context.Context, model *config.Model) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	counts := make(map[string][]string)
	for _, t := range model.Tasks {
		if _, ok := r.kinds[t.Kind]; !ok {
			errs = append(errs, fmt.Sprintf("task %q: unknown kind %q (registered: %s)", t.Name, t.Kind, strings.Join(r.Kinds(), ", ")))
			continue
		}
		counts[t.Kind] = append(counts[t.Kind], t.Name)
	}
	for kind, names := range counts {
		if r.kinds[kind].Singleton && len(names) > 1 {
			errs = append(errs, fmt.Sprintf("at most one %q task may be declared, found %s", kind, strings.Join(names, ", ")))
		}
	}

	if len(errs) > 0 {
		logger.Debug("Registry validation failed.", "error_count", len(errs))
		return errors.New("pipeline validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.", "tasks", len(model.Tasks))
	return nil
}
