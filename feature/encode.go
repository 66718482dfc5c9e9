package feature

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/panelcp/lpci/panel"
)

// Encoding is a categorical expansion strategy.
type Encoding int

const (
	// EncodingOneHot expands a categorical column into one indicator
	// column per distinct value.
	EncodingOneHot Encoding = iota
)

// Encode expands the categorical columns named in methods into model-ready
// indicator columns. Indicator columns are named <col>=<value> and added in
// lexicographic value order; method keys are processed in lexicographic
// order so the resulting column layout is deterministic. The named column
// must be categorical; naming a float column is an error.
func Encode(f *panel.Frame, methods map[string]Encoding) (*panel.Frame, []string, error) {
	cols := make([]string, 0, len(methods))
	for col := range methods {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	out := f
	var names []string
	for _, col := range cols {
		if methods[col] != EncodingOneHot {
			return nil, nil, errors.Wrapf(ErrUnknownEncoding, "column %q method %d", col, methods[col])
		}
		next, colNames, err := oneHot(out, col)
		if err != nil {
			return nil, nil, err
		}
		out = next
		names = append(names, colNames...)
	}
	return out, names, nil
}

func oneHot(f *panel.Frame, col string) (*panel.Frame, []string, error) {
	vals, ok := f.StringValues(col)
	if !ok {
		if _, isFloat := f.Values(col); isFloat {
			return nil, nil, errors.Wrapf(panel.ErrUnknownColumn, "column %q is not categorical", col)
		}
		return nil, nil, errors.Wrapf(panel.ErrUnknownColumn, "column %q", col)
	}

	seen := make(map[string]struct{})
	var categories []string
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		categories = append(categories, v)
	}
	sort.Strings(categories)

	out := f
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		ind := make([]float64, len(vals))
		for i, v := range vals {
			if v == c {
				ind[i] = 1.0
			}
		}
		name := fmt.Sprintf("%s=%s", col, c)
		next, err := out.WithColumn(name, ind)
		if err != nil {
			return nil, nil, err
		}
		out = next
		names = append(names, name)
	}
	return out, names, nil
}
