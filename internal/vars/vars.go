// Package vars resolves declared input variables against values supplied on
// the command line. Resolution happens before graph construction so that a
// missing required variable aborts the run with zero side effects.
package vars

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/microform/internal/config"
	"github.com/vk/microform/internal/ctxlog"
)

// MissingVariableError reports a declared variable with no default and no
// supplied value.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing required variable %q (no default, no --var value)", e.Name)
}

// Resolve produces the final variable values for a run. Supplied values are
// raw CLI strings; each is converted to the variable's declared type.
// Supplying a value for an undeclared variable is an error, matching the
// declared-inputs-only contract of the config language.
func Resolve(ctx context.Context, decls []*config.Variable, supplied map[string]string) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	declared := make(map[string]*config.Variable, len(decls))
	for _, d := range decls {
		declared[d.Name] = d
	}

	// Deterministic error order when several values are undeclared.
	var unknown []string
	for name := range supplied {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("value supplied for undeclared variable %q", unknown[0])
	}

	values := make(map[string]cty.Value, len(decls))
	for _, d := range decls {
		raw, ok := supplied[d.Name]
		if !ok {
			if d.Default == nil {
				return nil, &MissingVariableError{Name: d.Name}
			}
			val, err := convert.Convert(*d.Default, d.Type)
			if err != nil {
				return nil, fmt.Errorf("default for variable %q does not match its type: %w", d.Name, err)
			}
			values[d.Name] = val
			continue
		}

		val, err := convert.Convert(cty.StringVal(raw), d.Type)
		if err != nil {
			return nil, fmt.Errorf("value for variable %q is not a valid %s: %w", d.Name, d.Type.FriendlyName(), err)
		}
		values[d.Name] = val
	}

	logger.Debug("Variables resolved.", "count", len(values))
	return values, nil
}
