package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/cardtree/pkg/debug"
	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/model"
)

// maxParallelLoads bounds concurrent source reads.
const maxParallelLoads = 8

// LoadResult contains the result of loading a single source
type LoadResult struct {
	Source DataSource
	Nodes  []model.Node
	Error  error
}

// LoadFromSource loads nodes from any source type
func LoadFromSource(ctx context.Context, source DataSource, opts ParseOptions) ([]model.Node, error) {
	defer metrics.Timer(metrics.SourceLoad)()

	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return reader.LoadNodes(ctx)
	case SourceTypeJSON, SourceTypeJSONL, SourceTypeYAML:
		f, err := os.Open(source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		defer f.Close()
		switch source.Type {
		case SourceTypeJSON:
			return ReadJSON(f)
		case SourceTypeJSONL:
			return ReadJSONL(f, opts)
		default:
			return ReadYAML(f)
		}
	default:
		return nil, fmt.Errorf("unsupported source type: %s", source.Type)
	}
}

// Load detects the source type of path and loads it.
func Load(ctx context.Context, path string) ([]model.Node, error) {
	source, err := DetectSource(path)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(ctx, source, ParseOptions{})
}

// LoadAll loads every path concurrently and merges the results in path
// order. Any failed source or an id defined by more than one source fails
// the whole load; the per-source results are returned either way.
func LoadAll(ctx context.Context, paths []string, opts ParseOptions) ([]model.Node, []LoadResult, error) {
	results := make([]LoadResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, path := range paths {
		g.Go(func() error {
			source, err := DetectSource(path)
			if err != nil {
				results[i] = LoadResult{Source: DataSource{Path: path}, Error: err}
				return err
			}
			nodes, err := LoadFromSource(ctx, source, opts)
			source.NodeCount = len(nodes)
			source.Valid = err == nil
			if err != nil {
				source.ValidationError = err.Error()
			}
			results[i] = LoadResult{Source: source, Nodes: nodes, Error: err}
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, results, err
	}
	debug.Log("loaded %d sources", len(paths))

	merged, err := Merge(results)
	if err != nil {
		return nil, results, err
	}
	return merged, results, nil
}

// Merge concatenates the nodes of successful results, rejecting ids that
// more than one source defines.
func Merge(results []LoadResult) ([]model.Node, error) {
	total := 0
	for _, r := range results {
		total += len(r.Nodes)
	}
	merged := make([]model.Node, 0, total)
	owner := make(map[model.ID]string, total)
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		for _, n := range r.Nodes {
			if prev, ok := owner[n.ID]; ok {
				return nil, fmt.Errorf("duplicate node id %q in %s (already defined in %s)", n.ID, r.Source.Path, prev)
			}
			owner[n.ID] = r.Source.Path
			merged = append(merged, n)
		}
	}
	return merged, nil
}

// Save writes nodes to path in the format implied by its extension.
func Save(ctx context.Context, path string, nodes []model.Node) error {
	typ, err := TypeForPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if typ == SourceTypeSQLite {
		return WriteSQLite(ctx, path, nodes)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	switch typ {
	case SourceTypeJSON:
		err = WriteJSON(f, nodes)
	case SourceTypeJSONL:
		err = WriteJSONL(f, nodes)
	default:
		err = WriteYAML(f, nodes)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
