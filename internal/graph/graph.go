// Package graph builds the ffmpeg filter graph for a render as typed nodes
// and only turns it into filter_complex text at the edge.
package graph

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
)

// Expr is an ffmpeg expression. It is quoted on output.
type Expr string

// Path is a file path used as a filter option. It is escaped and quoted.
type Path string

// Arg is one filter option. An empty Key makes it positional.
type Arg struct {
	Key   string
	Value any // int, float64, string, Expr or Path
}

// Filter is a single ffmpeg filter with its options.
type Filter struct {
	Name string
	Args []Arg
}

// F builds a filter from key/value pairs.
func F(name string, kv ...any) Filter {
	f := Filter{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Args = append(f.Args, Arg{Key: kv[i].(string), Value: kv[i+1]})
	}
	return f
}

// Node is a linear filter chain from input pads to output pads.
type Node struct {
	In      []string
	Filters []Filter
	Out     []string
}

// Input is one -i source with the options that precede it.
type Input struct {
	Path    string
	Options []string
}

// Graph is the complete filter graph with its inputs.
type Graph struct {
	Inputs   []Input
	Nodes    []Node
	VideoOut string
	AudioOut string
}

// AddInput registers a source and returns its index.
func (g *Graph) AddInput(path string, opts ...string) int {
	g.Inputs = append(g.Inputs, Input{Path: path, Options: opts})
	return len(g.Inputs) - 1
}

// Add appends a chain.
func (g *Graph) Add(in []string, out string, filters ...Filter) {
	var outs []string
	if out != "" {
		outs = []string{out}
	}
	g.Nodes = append(g.Nodes, Node{In: in, Filters: filters, Out: outs})
}

// Stream is the pad name of a stream of input idx, e.g. "2:v".
func Stream(idx int, kind string) string {
	return fmt.Sprintf("%d:%s", idx, kind)
}

// String serializes the graph into filter_complex syntax.
func (g *Graph) String() string {
	parts := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ";\n")
}

// WriteScript writes the graph to a file for -filter_complex_script.
func (g *Graph) WriteScript(path string) error {
	if err := os.WriteFile(path, []byte(g.String()), 0644); err != nil {
		return fmt.Errorf("failed to write filter script: %w", err)
	}
	return nil
}

func (n Node) String() string {
	var sb strings.Builder
	for _, in := range n.In {
		sb.WriteString("[" + in + "]")
	}
	for i, f := range n.Filters {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(f.String())
	}
	for _, out := range n.Out {
		sb.WriteString("[" + out + "]")
	}
	return sb.String()
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		v := formatValue(a.Value)
		if a.Key == "" {
			args[i] = v
		} else {
			args[i] = a.Key + "=" + v
		}
	}
	return f.Name + "=" + strings.Join(args, ":")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	case Expr:
		return "'" + string(x) + "'"
	case Path:
		return "'" + escapeFilterPath(string(x)) + "'"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}

// escapeFilterPath escapes special characters in file paths for ffmpeg filter syntax.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "\\\\")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}

var (
	labelRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	streamRe = regexp.MustCompile(`^(\d+):([va])$`)
)

// Validate checks the graph before it is handed to ffmpeg: every label is
// produced once and consumed once, stream references exist, no chain is
// empty, numbers are finite and expressions are balanced. The returned
// error is a graph validation RenderError whose detail is the offending chain.
func (g *Graph) Validate() error {
	fail := func(n *Node, format string, args ...any) error {
		detail := ""
		if n != nil {
			detail = n.String()
		}
		return models.NewErrorDetail(models.KindGraphValidation, "validate graph", fmt.Errorf(format, args...), detail)
	}

	if len(g.Nodes) == 0 {
		return fail(nil, "graph has no chains")
	}
	for i, in := range g.Inputs {
		if in.Path == "" {
			return fail(nil, "input %d has no path", i)
		}
	}

	produced := map[string]int{}
	consumed := map[string]int{}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if len(n.Filters) == 0 {
			return fail(n, "chain %d has no filters", i)
		}
		if len(n.Out) == 0 {
			return fail(n, "chain %d has no output", i)
		}

		for _, in := range n.In {
			if m := streamRe.FindStringSubmatch(in); m != nil {
				idx, _ := strconv.Atoi(m[1])
				if idx >= len(g.Inputs) {
					return fail(n, "stream %q references missing input", in)
				}
			} else if !labelRe.MatchString(in) {
				return fail(n, "malformed pad %q", in)
			}
			consumed[in]++
		}
		for _, out := range n.Out {
			if !labelRe.MatchString(out) {
				return fail(n, "malformed output label %q", out)
			}
			produced[out]++
		}

		for _, f := range n.Filters {
			if f.Name == "" {
				return fail(n, "chain %d has an unnamed filter", i)
			}
			for _, a := range f.Args {
				if err := checkArg(a); err != nil {
					return fail(n, "%s: %v", f.Name, err)
				}
			}
		}
	}

	for label, c := range produced {
		if c > 1 {
			return fail(g.producer(label), "label %q produced %d times", label, c)
		}
		isOut := label == g.VideoOut || label == g.AudioOut
		switch {
		case isOut && consumed[label] > 0:
			return fail(g.consumer(label), "output label %q is consumed inside the graph", label)
		case !isOut && consumed[label] == 0:
			return fail(g.producer(label), "label %q is never consumed", label)
		}
	}
	for label, c := range consumed {
		if streamRe.MatchString(label) {
			continue
		}
		if produced[label] == 0 {
			return fail(g.consumer(label), "label %q is consumed but never produced", label)
		}
		if c > 1 {
			return fail(g.consumer(label), "label %q consumed %d times", label, c)
		}
	}

	if g.VideoOut == "" || produced[g.VideoOut] == 0 {
		return fail(nil, "video output %q is not produced", g.VideoOut)
	}
	if g.AudioOut == "" || produced[g.AudioOut] == 0 {
		return fail(nil, "audio output %q is not produced", g.AudioOut)
	}
	return nil
}

func (g *Graph) producer(label string) *Node {
	for i := range g.Nodes {
		for _, o := range g.Nodes[i].Out {
			if o == label {
				return &g.Nodes[i]
			}
		}
	}
	return nil
}

func (g *Graph) consumer(label string) *Node {
	for i := range g.Nodes {
		for _, in := range g.Nodes[i].In {
			if in == label {
				return &g.Nodes[i]
			}
		}
	}
	return nil
}

func checkArg(a Arg) error {
	switch v := a.Value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("option %q is not finite", a.Key)
		}
	case Expr:
		return checkExpr(string(v))
	case Path:
		if v == "" {
			return fmt.Errorf("option %q has an empty path", a.Key)
		}
	case string:
		if v == "" {
			return fmt.Errorf("option %q is empty", a.Key)
		}
		if strings.ContainsAny(v, "[];,'") {
			return fmt.Errorf("option %q contains graph syntax: %q", a.Key, v)
		}
	case int:
	default:
		return fmt.Errorf("option %q has unsupported type %T", a.Key, v)
	}
	return nil
}

var errUnbalanced = errors.New("unbalanced brackets")

func checkExpr(e string) error {
	if strings.TrimSpace(e) == "" {
		return errors.New("empty expression")
	}
	if strings.ContainsAny(e, "'[];") {
		return fmt.Errorf("expression %q contains graph syntax", e)
	}
	if strings.Contains(e, "NaN") || strings.Contains(e, "Inf") {
		return fmt.Errorf("expression %q has a non-finite number", e)
	}
	depth := 0
	for _, r := range e {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w in %q", errUnbalanced, e)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w in %q", errUnbalanced, e)
	}
	return nil
}
