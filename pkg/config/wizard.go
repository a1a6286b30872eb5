package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// wizardValues holds the form fields as strings so huh inputs can bind them.
type wizardValues struct {
	buffer      string
	cardsPerRow string
	bound       string
	defaultOpen string
	anchor      string
	margin      string
	dataPaths   string
	showDetail  bool
	mouse       bool
}

func valuesFrom(cfg Config) wizardValues {
	return wizardValues{
		buffer:      strconv.Itoa(cfg.Window.Buffer),
		cardsPerRow: strconv.Itoa(cfg.Window.CardsPerRow),
		bound:       cfg.Window.Bound,
		defaultOpen: cfg.Tree.DefaultOpen,
		anchor:      cfg.Selection.Anchor,
		margin:      strconv.Itoa(cfg.Visibility.Margin),
		dataPaths:   strings.Join(cfg.Data.Paths, ","),
		showDetail:  cfg.DetailEnabled(),
		mouse:       cfg.MouseEnabled(),
	}
}

// apply copies the form values onto cfg.
func (v wizardValues) apply(cfg Config) (Config, error) {
	var err error
	if cfg.Window.Buffer, err = positiveInt("buffer", v.buffer); err != nil {
		return cfg, err
	}
	if cfg.Window.CardsPerRow, err = positiveInt("cards per row", v.cardsPerRow); err != nil {
		return cfg, err
	}
	margin, err := strconv.Atoi(strings.TrimSpace(v.margin))
	if err != nil || margin < 0 {
		return cfg, fmt.Errorf("margin must be a non-negative integer")
	}
	cfg.Visibility.Margin = margin
	cfg.Window.Bound = v.bound
	cfg.Tree.DefaultOpen = v.defaultOpen
	cfg.Selection.Anchor = v.anchor
	cfg.Data.Paths = nil
	for _, p := range strings.Split(v.dataPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Data.Paths = append(cfg.Data.Paths, expandHome(p))
		}
	}
	showDetail, mouse := v.showDetail, v.mouse
	cfg.UI.ShowDetail = &showDetail
	cfg.UI.Mouse = &mouse
	return cfg, cfg.Validate()
}

func positiveInt(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func validatePositive(name string) func(string) error {
	return func(s string) error {
		_, err := positiveInt(name, s)
		return err
	}
}

// RunWizard interactively edits cfg and returns the result. The caller
// decides where to save it.
func RunWizard(cfg Config) (Config, error) {
	v := valuesFrom(cfg)

	fmt.Println("cardtree setup")
	fmt.Println("──────────────")

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Data sources").
				Description("Comma separated .json, .yaml or .db files loaded when -data is not given").
				Value(&v.dataPaths),
			huh.NewSelect[string]().
				Title("Parents without explicit state start").
				Options(
					huh.NewOption("Expanded", "open"),
					huh.NewOption("Collapsed", "closed"),
				).
				Value(&v.defaultOpen),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Render buffer").
				Description("Extra cards kept mounted around the visible ones").
				Validate(validatePositive("buffer")).
				Value(&v.buffer),
			huh.NewInput().
				Title("Cards per row").
				Validate(validatePositive("cards per row")).
				Value(&v.cardsPerRow),
			huh.NewSelect[string]().
				Title("Window end bound").
				Options(
					huh.NewOption("Exclusive (last + visible)", "exclusive"),
					huh.NewOption("One past (last + visible + 1)", "past_last"),
				).
				Value(&v.bound),
			huh.NewInput().
				Title("Visibility margin (lines)").
				Value(&v.margin),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Shift-range selection").
				Options(
					huh.NewOption("Keeps the anchor", "keep"),
					huh.NewOption("Moves the anchor", "move"),
				).
				Value(&v.anchor),
			huh.NewConfirm().
				Title("Show detail pane on wide terminals?").
				Value(&v.showDetail),
			huh.NewConfirm().
				Title("Enable mouse?").
				Value(&v.mouse),
		),
	)

	if err := form.Run(); err != nil {
		return cfg, err
	}
	fmt.Println("")
	return v.apply(cfg)
}
