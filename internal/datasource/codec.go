package datasource

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/cardtree/pkg/model"
)

// DefaultMaxLineSize is the longest JSONL line accepted (10MB).
const DefaultMaxLineSize = 1024 * 1024 * 10

// ParseOptions configures the behavior of the readers.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// MaxLineSize bounds JSONL lines. Longer lines are skipped with a
	// warning. If 0, uses DefaultMaxLineSize.
	MaxLineSize int
}

func (o ParseOptions) warn(msg string) {
	if o.WarningHandler != nil {
		o.WarningHandler(msg)
		return
	}
	fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, utf8BOM)
}

// normalize rewrites legacy kinds in place.
func normalize(nodes []model.Node) []model.Node {
	for i := range nodes {
		nodes[i].Kind = nodes[i].Kind.Normalize()
	}
	return nodes
}

// ReadJSON decodes either a JSON array of nodes or an object keyed by node
// id. Object form is ordered by key since JSON objects carry no order.
func ReadJSON(r io.Reader) ([]model.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var nodes []model.Node
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
		return normalize(nodes), nil
	case '{':
		var byID map[string]model.Node
		if err := json.Unmarshal(data, &byID); err != nil {
			return nil, fmt.Errorf("decode json object: %w", err)
		}
		keys := make([]string, 0, len(byID))
		for k := range byID {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		nodes := make([]model.Node, 0, len(keys))
		for _, k := range keys {
			n := byID[k]
			if n.ID == "" {
				n.ID = model.ID(k)
			}
			nodes = append(nodes, n)
		}
		return normalize(nodes), nil
	}
	return nil, fmt.Errorf("decode json: expected array or object, got %q", data[0])
}

// ReadJSONL decodes one node per line. Malformed lines are skipped with a
// warning.
func ReadJSONL(r io.Reader, opts ParseOptions) ([]model.Node, error) {
	maxLine := opts.MaxLineSize
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	reader := bufio.NewReaderSize(r, maxLine)

	var nodes []model.Node
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading nodes at line %d: %w", lineNum, err)
		}
		if isPrefix {
			opts.warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxLine))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}
		if lineNum == 1 {
			line = stripBOM(line)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var n model.Node
		if err := json.Unmarshal(line, &n); err != nil {
			opts.warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		if n.ID == "" {
			opts.warn(fmt.Sprintf("skipping node without id on line %d", lineNum))
			continue
		}
		nodes = append(nodes, n)
	}
	return normalize(nodes), nil
}

// ReadYAML decodes a YAML list of nodes.
func ReadYAML(r io.Reader) ([]model.Node, error) {
	var nodes []model.Node
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&nodes); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return normalize(nodes), nil
}

// WriteJSON encodes nodes as an indented JSON array.
func WriteJSON(w io.Writer, nodes []model.Node) error {
	if nodes == nil {
		nodes = []model.Node{}
	}
	data, err := json.MarshalIndent(nodes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteJSONL encodes one node per line.
func WriteJSONL(w io.Writer, nodes []model.Node) error {
	bw := bufio.NewWriter(w)
	for _, n := range nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
		bw.Write(data)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteYAML encodes nodes as a YAML list.
func WriteYAML(w io.Writer, nodes []model.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(nodes); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
