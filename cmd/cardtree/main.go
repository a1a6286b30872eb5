package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/cardtree/internal/datasource"
	"github.com/vanderheijden86/cardtree/pkg/config"
	"github.com/vanderheijden86/cardtree/pkg/debug"
	"github.com/vanderheijden86/cardtree/pkg/export"
	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/store"
	"github.com/vanderheijden86/cardtree/pkg/testutil"
	_ "github.com/vanderheijden86/cardtree/pkg/ttyguard"
	"github.com/vanderheijden86/cardtree/pkg/ui"
	"github.com/vanderheijden86/cardtree/pkg/version"
	"github.com/vanderheijden86/cardtree/pkg/watcher"
)

const loadTimeout = 30 * time.Second

// pathList collects repeated or comma separated -data values.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*p = append(*p, s)
		}
	}
	return nil
}

func main() {
	var dataPaths pathList
	flag.Var(&dataPaths, "data", "Data file (.json, .jsonl, .yaml, .db); repeatable or comma separated")
	generate := flag.Int("generate", 0, "Generate a mock tree with N leaves instead of loading data")
	seed := flag.Int64("seed", 42, "Seed for -generate (0 = random)")
	configPath := flag.String("config", "", "Config file (default: $XDG_CONFIG_HOME/cardtree/config.yaml)")
	setup := flag.Bool("setup", false, "Run the interactive config setup and exit")
	dump := flag.Bool("dump", false, "Print the projected board and exit (default when stdout is not a terminal)")
	exportPath := flag.String("export", "", "Write a board snapshot (.svg, .png or .md) and exit")
	savePath := flag.String("save", "", "Write the loaded tree (.json, .jsonl, .yaml or .db) and exit")
	watch := flag.Bool("watch", false, "Reload when data files change")
	stats := flag.Bool("stats", false, "Print timing metrics as JSON on exit")
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	debugFlag := flag.Bool("debug", false, "Enable debug logging (same as CARDTREE_DEBUG=1)")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *debugFlag {
		debug.SetEnabled(true)
	}

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: cardtree [options]")
		fmt.Println("\nA virtualized card tree board.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("cardtree %s\n", version.Version)
		os.Exit(0)
	}

	cfg, cfgPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *setup {
		updated, err := config.RunWizard(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			os.Exit(1)
		}
		if err := config.SaveTo(updated, cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %s\n", cfgPath)
		os.Exit(0)
	}

	if len(dataPaths) == 0 {
		dataPaths = cfg.Data.Paths
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	nodes, err := loadNodes(ctx, dataPaths, *generate, *seed)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}

	st, err := newStore(nodes, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building tree: %v\n", err)
		os.Exit(1)
	}
	problems := store.Validate(st)
	for _, p := range problems {
		log.Printf("warning: %s", p)
	}
	if debug.Enabled() {
		debug.Log("loaded %d nodes, %d problems", len(nodes), len(problems))
		debug.Dump("config", cfg)
	}

	if *stats {
		defer func() {
			if err := writeStats(os.Stderr); err != nil {
				log.Printf("warning: stats: %v", err)
			}
		}()
	}

	if *savePath != "" {
		if err := datasource.Save(context.Background(), *savePath, st.AllNodes()); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving data: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %d nodes to %s\n", st.Len(), *savePath)
		return
	}

	opts := ui.Options{Config: cfg, Store: st, Title: boardTitle(dataPaths, *generate)}
	interactive := *exportPath == "" && !*dump && term.IsTerminal(int(os.Stdout.Fd()))

	if !interactive {
		m, err := ui.NewModel(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *exportPath != "" {
			err = exportBoard(m, st, *exportPath)
		} else {
			err = m.Dump(os.Stdout)
		}
		m.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *exportPath != "" {
			fmt.Printf("Wrote %s\n", *exportPath)
		}
		return
	}

	if *watch {
		if len(dataPaths) == 0 {
			log.Printf("warning: -watch needs -data; live reload disabled")
		} else if w, err := startWatcher(dataPaths); err != nil {
			log.Printf("warning: live reload disabled: %v", err)
		} else {
			defer w.Stop()
			opts.Watcher = w
			opts.Reload = reloadFunc(dataPaths, cfg)
		}
	}

	restore := redirectLogs()
	defer restore()

	m, err := ui.NewModel(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	if err := runTUIProgram(m, cfg.MouseEnabled()); err != nil {
		fmt.Printf("Error running cardtree: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config from path, or from the XDG location when path
// is empty. It returns the path the config would be saved to.
func loadConfig(path string) (config.Config, string, error) {
	if path == "" {
		path = config.ConfigPath()
	}
	if path == "" {
		return config.DefaultConfig(), "", nil
	}
	cfg, err := config.LoadFrom(path)
	return cfg, path, err
}

// loadNodes returns a generated tree when generate > 0, the merged data
// sources otherwise, and the default mock tree when neither is given.
func loadNodes(ctx context.Context, paths []string, generate int, seed int64) ([]model.Node, error) {
	if generate > 0 {
		gc := testutil.DefaultConfig()
		gc.Leaves = generate
		gc.Seed = seed
		gc.IncludeDescriptions = true
		return testutil.New(gc).Tree(), nil
	}
	if len(paths) == 0 {
		gc := testutil.DefaultConfig()
		gc.IncludeDescriptions = true
		return testutil.New(gc).Tree(), nil
	}
	nodes, _, err := datasource.LoadAll(ctx, paths, datasource.ParseOptions{
		WarningHandler: func(msg string) { log.Printf("warning: %s", msg) },
	})
	return nodes, err
}

func newStore(nodes []model.Node, cfg config.Config) (*store.MemoryStore, error) {
	return store.NewMemoryStore(nodes, store.WithFetchLatency(cfg.Data.FetchLatency))
}

func startWatcher(paths []string) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(paths, watcher.WithOnError(func(err error) {
		debug.Log("watcher: %v", err)
	}))
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// reloadFunc rebuilds the store from paths for live reload.
func reloadFunc(paths []string, cfg config.Config) ui.ReloadFunc {
	return func(ctx context.Context) (store.Store, error) {
		nodes, _, err := datasource.LoadAll(ctx, paths, datasource.ParseOptions{
			WarningHandler: func(msg string) { debug.Log("reload: %s", msg) },
		})
		if err != nil {
			return nil, err
		}
		return newStore(nodes, cfg)
	}
}

func boardTitle(paths []string, generate int) string {
	switch {
	case generate > 0:
		return fmt.Sprintf("cardtree · generated %d", generate)
	case len(paths) == 1:
		return "cardtree · " + filepath.Base(paths[0])
	case len(paths) > 1:
		return fmt.Sprintf("cardtree · %d sources", len(paths))
	default:
		return "cardtree · demo"
	}
}

// exportBoard writes the board as markdown for .md paths and as an SVG or
// PNG snapshot otherwise.
func exportBoard(m ui.Model, st *store.MemoryStore, path string) error {
	ctrl := m.Controller()
	opts := export.SnapshotOptions{
		Path:        path,
		Title:       "cardtree",
		Items:       ctrl.Flat(),
		Lookup:      st,
		Window:      ctrl.Window(),
		Visible:     ctrl.VisibleSet(),
		Selection:   m.Selection(),
		CardsPerRow: ctrl.Config().CardsPerRow,
	}
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return export.SaveMarkdown(opts)
	}
	return export.SaveSnapshot(opts)
}

// writeStats prints every timing metric that recorded at least one sample.
func writeStats(w io.Writer) error {
	data, err := json.MarshalIndent(metrics.AllTimingStats(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// redirectLogs keeps stderr logging off the alt screen. Output goes to the
// debug log file when one can be opened, otherwise it is dropped.
func redirectLogs() func() {
	var out io.Writer = io.Discard
	var f *os.File
	if path := config.DebugLogPath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if lf, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				f, out = lf, lf
			}
		}
	}
	log.SetOutput(out)
	debug.SetOutput(out)
	return func() {
		log.SetOutput(os.Stderr)
		debug.SetOutput(os.Stderr)
		if f != nil {
			f.Close()
		}
	}
}

func runTUIProgram(m ui.Model, mouse bool) error {
	opts := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	}
	if mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set CARDTREE_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CARDTREE_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
