package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/japaniel/lexicard/pkg/config"
	"github.com/japaniel/lexicard/pkg/engine"
	"github.com/japaniel/lexicard/pkg/logger"
	"github.com/japaniel/lexicard/pkg/metrics"
	"github.com/japaniel/lexicard/pkg/store/sqlstore"
	"github.com/japaniel/lexicard/pkg/textsource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// session is the state shared by all commands of one invocation.
type session struct {
	cfg      *config.Config
	store    *sqlstore.Store
	engine   *engine.Engine
	log      *log.Logger
	registry *prometheus.Registry
}

const sessionKey = "session"

func current(c *cli.Context) *session {
	return c.App.Metadata[sessionKey].(*session)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lexicard",
		Usage: "Import dictionaries and look up the words of a text.",
		Description: strings.Join([]string{
			"Supported formats: dictcc, cedict, termbank, yomitan.",
			"Settings are read from lexicard.toml and LEXICARD_* variables.",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "read settings from `FILE`",
				EnvVars: []string{config.EnvPath},
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "override database.path with `PATH`",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "print collected metrics to stderr on exit",
			},
		},
		Metadata: map[string]interface{}{},
		Before:   setup,
		After:    teardown,
		Commands: []*cli.Command{
			importCommand,
			lookupCommand,
			listCommand,
			deleteCommand,
			configCommand,
		},
	}
}

func setup(c *cli.Context) error {
	// Help and the config commands run without a database.
	switch c.Args().First() {
	case "", "help", "h", configCommand.Name:
		return nil
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if p := c.String("db"); p != "" {
		cfg.Database.Path = p
	}
	l := logger.FromConfig(c.App.ErrWriter, "lexicard", cfg.Log)

	st, err := sqlstore.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	l.Debug("opened database", "path", cfg.Database.Path)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		st.Close()
		return err
	}

	e := engine.New(st, cfg)
	e.Logger = l
	e.Metrics = m
	if cfg.Lookup.UseMorphology {
		a, err := textsource.NewAnalyzer()
		if err != nil {
			st.Close()
			return err
		}
		e.Morphology = a
	}

	c.App.Metadata[sessionKey] = &session{cfg: cfg, store: st, engine: e, log: l, registry: reg}
	return nil
}

func teardown(c *cli.Context) error {
	s, ok := c.App.Metadata[sessionKey].(*session)
	if !ok {
		return nil
	}
	if c.Bool("metrics") {
		printMetrics(c, s.registry)
	}
	return s.store.Close()
}

// printMetrics writes one line per counter and histogram series.
func printMetrics(c *cli.Context, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(c.App.ErrWriter, "gather metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(c.App.ErrWriter, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(c.App.ErrWriter, "%s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
}
