package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cardtree/internal/datasource"
	"github.com/vanderheijden86/cardtree/pkg/config"
	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/testutil"
	"github.com/vanderheijden86/cardtree/pkg/ui"
)

func TestPathListSplitsAndRepeats(t *testing.T) {
	var p pathList
	if err := p.Set("a.json, b.yaml"); err != nil {
		t.Fatal(err)
	}
	if err := p.Set("c.db"); err != nil {
		t.Fatal(err)
	}
	if err := p.Set(" , "); err != nil {
		t.Fatal(err)
	}
	want := []string{"a.json", "b.yaml", "c.db"}
	if len(p) != len(want) {
		t.Fatalf("expected %v, got %v", want, p)
	}
	for i := range want {
		if p[i] != want[i] {
			t.Errorf("expected %q at %d, got %q", want[i], i, p[i])
		}
	}
	if p.String() != "a.json,b.yaml,c.db" {
		t.Errorf("unexpected String(): %q", p.String())
	}
}

func TestLoadNodesGenerate(t *testing.T) {
	nodes, err := loadNodes(context.Background(), nil, 30, 7)
	if err != nil {
		t.Fatalf("loadNodes: %v", err)
	}
	leaves := 0
	for _, n := range nodes {
		if n.Kind == model.KindLeaf {
			leaves++
		}
	}
	if leaves != 30 {
		t.Errorf("expected 30 leaves, got %d", leaves)
	}

	again, _ := loadNodes(context.Background(), nil, 30, 7)
	if len(again) != len(nodes) || again[len(again)-1].ID != nodes[len(nodes)-1].ID {
		t.Error("expected the same seed to generate the same tree")
	}
}

func TestLoadNodesDefaultsToDemoTree(t *testing.T) {
	nodes, err := loadNodes(context.Background(), nil, 0, 0)
	if err != nil {
		t.Fatalf("loadNodes: %v", err)
	}
	if len(nodes) != len(testutil.NewDefault().Tree()) {
		t.Errorf("expected the demo tree, got %d nodes", len(nodes))
	}
}

func TestLoadNodesFromFilesAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.json")
	if err := datasource.Save(context.Background(), path, testutil.Scenario()); err != nil {
		t.Fatalf("save: %v", err)
	}

	nodes, err := loadNodes(context.Background(), []string{path}, 0, 0)
	if err != nil {
		t.Fatalf("loadNodes: %v", err)
	}
	if len(nodes) != len(testutil.Scenario()) {
		t.Errorf("expected %d nodes, got %d", len(testutil.Scenario()), len(nodes))
	}

	st, err := reloadFunc([]string{path}, config.DefaultConfig())(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(st.AllNodes()) != len(nodes) {
		t.Errorf("expected reload to see %d nodes, got %d", len(nodes), len(st.AllNodes()))
	}

	if _, err := loadNodes(context.Background(), []string{filepath.Join(dir, "missing.json")}, 0, 0); err == nil {
		t.Error("expected an error for a missing source")
	}
}

func TestBoardTitle(t *testing.T) {
	tests := []struct {
		paths    []string
		generate int
		want     string
	}{
		{nil, 50, "cardtree · generated 50"},
		{[]string{"/tmp/x/tree.yaml"}, 0, "cardtree · tree.yaml"},
		{[]string{"a.json", "b.json"}, 0, "cardtree · 2 sources"},
		{nil, 0, "cardtree · demo"},
	}
	for _, tt := range tests {
		if got := boardTitle(tt.paths, tt.generate); got != tt.want {
			t.Errorf("boardTitle(%v, %d) = %q, want %q", tt.paths, tt.generate, got, tt.want)
		}
	}
}

func TestExportBoard(t *testing.T) {
	st, err := newStore(testutil.Scenario(), config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	m, err := ui.NewModel(ui.Options{Config: config.DefaultConfig(), Store: st})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	for _, name := range []string{"board.svg", "board.md"} {
		path := filepath.Join(t.TempDir(), name)
		if err := exportBoard(m, st, path); err != nil {
			t.Fatalf("exportBoard(%s): %v", name, err)
		}
	}
}

func resetMetrics() {
	for _, m := range metrics.AllTimingMetrics() {
		m.Reset()
	}
}

func TestWriteStats(t *testing.T) {
	resetMetrics()
	defer resetMetrics()
	st, _ := newStore(testutil.Scenario(), config.DefaultConfig())
	m, err := ui.NewModel(ui.Options{Config: config.DefaultConfig(), Store: st})
	if err != nil {
		t.Fatal(err)
	}
	m.Close()

	var buf bytes.Buffer
	if err := writeStats(&buf); err != nil {
		t.Fatalf("writeStats: %v", err)
	}
	var stats []metrics.TimingStats
	if err := json.Unmarshal(buf.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if !metrics.Enabled() {
		return
	}
	found := false
	for _, s := range stats {
		if s.Count == 0 {
			t.Errorf("metric %s listed without samples", s.Name)
		}
		if strings.EqualFold(s.Name, "projection") {
			found = true
		}
	}
	if !found {
		t.Error("expected projection timings after building a board")
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, got, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got != path {
		t.Errorf("expected save path %q, got %q", path, got)
	}
	if cfg.Window.Buffer != config.DefaultConfig().Window.Buffer {
		t.Error("expected defaults for a missing file")
	}
}
