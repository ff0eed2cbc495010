package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/traversal"
)

// parseValue turns command-line text into a property value. Quoted text is
// always a string.
func parseValue(s string) any {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	switch s {
	case "nil", "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// parseProps parses field=value pairs
func parseProps(args []string) (graph.Props, error) {
	props := graph.Props{}
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		props[field] = parseValue(value)
	}
	return props, nil
}

func parseFilter(args []string) (graph.Filter, error) {
	props, err := parseProps(args)
	if err != nil {
		return nil, err
	}
	return graph.Filter(props), nil
}

func parseID(s string) (graph.ID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// applyStep extends it by one step written as
//
//	outV | outV*2 | out(color=red) | both*2(weight=3) | dedup | limit=10 | aka=name
func applyStep(it *traversal.Iterator, step string) (*traversal.Iterator, error) {
	if name, n, ok := strings.Cut(step, "="); ok && !strings.Contains(name, "(") {
		switch name {
		case "limit":
			k, err := strconv.Atoi(n)
			if err != nil || k < 0 {
				return nil, fmt.Errorf("invalid limit %q", n)
			}
			return it.Limit(k), nil
		case "aka":
			return it.Aka(n), nil
		}
		return nil, fmt.Errorf("unknown step %q", step)
	}
	if step == "dedup" {
		return it.Dedup(), nil
	}

	name := step
	var opts []traversal.HopOption
	if head, rest, ok := strings.Cut(step, "("); ok {
		if !strings.HasSuffix(rest, ")") {
			return nil, fmt.Errorf("unterminated filter in %q", step)
		}
		filter, err := parseFilter(strings.Split(strings.TrimSuffix(rest, ")"), ","))
		if err != nil {
			return nil, err
		}
		name = head
		opts = append(opts, traversal.Match(filter))
	}
	if head, depth, ok := strings.Cut(name, "*"); ok {
		n, err := strconv.Atoi(depth)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid depth in %q", step)
		}
		name = head
		opts = append(opts, traversal.Depth(n))
	}

	switch name {
	case "inV":
		return it.InV(opts...), nil
	case "outV":
		return it.OutV(opts...), nil
	case "bothV":
		return it.BothV(opts...), nil
	case "inE":
		return it.InE(opts...), nil
	case "outE":
		return it.OutE(opts...), nil
	case "bothE":
		return it.BothE(opts...), nil
	case "in":
		return it.In(opts...), nil
	case "out":
		return it.Out(opts...), nil
	case "both":
		return it.Both(opts...), nil
	}
	return nil, fmt.Errorf("unknown step %q", step)
}

func applySteps(it *traversal.Iterator, steps []string) (*traversal.Iterator, error) {
	for _, step := range steps {
		next, err := applyStep(it, step)
		if err != nil {
			return nil, err
		}
		it = next
	}
	return it, nil
}
