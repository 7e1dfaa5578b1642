package whoiscache

import (
	"fmt"
	"strings"
)

type fieldKind int

const (
	absent fieldKind = iota
	scalar
	list
)

// field is a raw payload value reduced to the three shapes the normalizer understands.
type field struct {
	kind   fieldKind
	scalar string
	list   []string
}

// fieldOf classifies a decoded JSON value. Anything that is not a string,
// number, bool or list of those is treated as absent.
func fieldOf(v any) field {
	switch t := v.(type) {
	case nil:
		return field{}
	case string:
		if strings.TrimSpace(t) == "" {
			return field{}
		}
		return field{kind: scalar, scalar: t}
	case float64, int, int64, bool:
		return field{kind: scalar, scalar: fmt.Sprint(t)}
	case []string:
		return listField(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if f := fieldOf(item); f.kind == scalar {
				items = append(items, f.scalar)
			}
		}
		return listField(items)
	}
	return field{}
}

func listField(items []string) field {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return field{}
	}
	return field{kind: list, list: out}
}

// join flattens the field, mapping every element through fn first.
func (f field) join(sep string, fn func(string) string) (string, bool) {
	switch f.kind {
	case scalar:
		return fn(f.scalar), true
	case list:
		out := make([]string, len(f.list))
		for i, s := range f.list {
			out[i] = fn(s)
		}
		return strings.Join(out, sep), true
	}
	return "", false
}

// first returns the scalar value, or the first element of a list.
// Some registries report several creation or expiration dates.
func (f field) first() string {
	switch f.kind {
	case scalar:
		return f.scalar
	case list:
		return f.list[0]
	}
	return ""
}
