package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/japaniel/lexicard/pkg/archive"
	"github.com/japaniel/lexicard/pkg/config"
	"github.com/japaniel/lexicard/pkg/engine"
	"github.com/japaniel/lexicard/pkg/ingest"
	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/textsource"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"
)

var importCommand = &cli.Command{
	Name:      "import",
	Usage:     "import dictionary archives",
	ArgsUsage: "PATH...",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "archive `FORMAT`", Required: true},
		&cli.StringFlag{Name: "name", Usage: "display `NAME` (single archive only)"},
		&cli.StringFlag{Name: "id", Usage: "dictionary `ID` (single archive only, default random)"},
		&cli.StringFlag{Name: "url", Usage: "download the archive from `URL` to PATH first"},
	},
	Action: runImport,
}

func runImport(c *cli.Context) error {
	s := current(c)
	f, err := lexicon.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("import: no archive given")
	}
	if len(paths) > 1 && (c.IsSet("name") || c.IsSet("id") || c.IsSet("url")) {
		return errors.New("import: --name, --id and --url need a single archive")
	}
	if u := c.String("url"); u != "" {
		s.log.Info("downloading", "url", u, "dest", paths[0])
		if err := archive.Fetch(c.Context, u, paths[0]); err != nil {
			return err
		}
	}

	jobs := make([]engine.ImportJob, len(paths))
	for i, p := range paths {
		jobs[i] = engine.ImportJob{
			Descriptor: engine.Descriptor{ID: c.String("id"), Name: c.String("name"), Format: f},
			Path:       p,
			Progress:   progressLogger(s, p),
		}
	}
	results, err := s.engine.ImportAll(c.Context, jobs)
	for _, r := range results {
		if r.EntryCount == 0 {
			continue
		}
		fmt.Fprintf(c.App.Writer, "imported %s %q: %d entries, %d records\n",
			r.Dictionary.ID, r.Dictionary.Name, r.EntryCount, r.RecordCount)
	}
	return err
}

// progressLogger logs import progress of path in steps of ten percent.
func progressLogger(s *session, path string) ingest.ProgressFunc {
	next := 0.1
	return func(f float64) error {
		if f < next {
			return nil
		}
		s.log.Debug("import progress", "path", path, "percent", int(f*100))
		for next <= f {
			next += 0.1
		}
		return nil
	}
}

var lookupCommand = &cli.Command{
	Name:      "lookup",
	Usage:     "find dictionary entries for the words of a text",
	ArgsUsage: "[TEXT]",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "dict", Aliases: []string{"d"}, Usage: "search dictionary `ID` (default all)"},
		&cli.StringFlag{Name: "html", Usage: "read the article text of HTML `FILE`"},
		&cli.IntFlag{Name: "limit", Value: 3, Usage: "print at most `N` candidates per token"},
	},
	Action: runLookup,
}

func runLookup(c *cli.Context) error {
	s := current(c)
	text := strings.Join(c.Args().Slice(), " ")
	if path := c.String("html"); path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		fh, err := os.Open(abs)
		if err != nil {
			return err
		}
		article, err := textsource.FromHTML(fh, "file://"+filepath.ToSlash(abs))
		fh.Close()
		if err != nil {
			return err
		}
		if article.Title != "" {
			fmt.Fprintf(c.App.Writer, "# %s\n", article.Title)
		}
		text = article.Text
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("lookup: no text given")
	}

	ids := c.StringSlice("dict")
	if len(ids) == 0 {
		all, err := s.engine.Dictionaries(c.Context)
		if err != nil {
			return err
		}
		for _, d := range all {
			ids = append(ids, d.ID)
		}
	}

	res, err := s.engine.Lookup(c.Context, ids, text)
	if err != nil {
		return err
	}
	limit := c.Int("limit")
	for _, pos := range res {
		for _, tok := range pos.TranslatedTokens {
			fmt.Fprintf(c.App.Writer, "%d %s\n", pos.TextCharacterIndex, tok.MatchedTokenText)
			for i, cand := range tok.Candidates {
				if limit > 0 && i >= limit {
					break
				}
				fmt.Fprintf(c.App.Writer, "  %s\n", describe(cand))
			}
		}
	}
	return nil
}

func describe(c lexicon.Candidate) string {
	var b strings.Builder
	b.WriteString(c.Entry.Head)
	if r := c.Entry.Pronunciation; r != "" && r != c.Entry.Head {
		fmt.Fprintf(&b, " [%s]", r)
	} else if v := c.Entry.Variant; v != "" && v != c.Entry.Head {
		fmt.Fprintf(&b, " [%s]", v)
	}
	if len(c.Inflections) > 0 {
		fmt.Fprintf(&b, " <%s>", strings.Join(c.Inflections, " "))
	}
	if len(c.Entry.Meanings) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(c.Entry.Meanings, "; "))
	}
	return b.String()
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "list imported dictionaries",
	Action: func(c *cli.Context) error {
		all, err := current(c).engine.Dictionaries(c.Context)
		if err != nil {
			return err
		}
		tbl := table.New("Key", "ID", "Name", "Format", "Revision", "Entries", "Imported").WithWriter(c.App.Writer)
		for _, d := range all {
			tbl.AddRow(d.Key, d.ID, d.Name, d.Format, d.Revision, d.EntryCount, d.ImportedAt.Format("2006-01-02 15:04"))
		}
		tbl.Print()
		return nil
	},
}

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "delete dictionaries and their entries",
	ArgsUsage: "ID...",
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return errors.New("delete: no dictionary id given")
		}
		e := current(c).engine
		for _, id := range c.Args().Slice() {
			d, err := e.Dictionary(c.Context, id)
			if err != nil {
				return err
			}
			if err := e.DeleteDictionary(c.Context, d.Key); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
		}
		return nil
	},
}

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "inspect or create the configuration file",
	Subcommands: []*cli.Command{
		{
			Name:      "init",
			Usage:     "write the default configuration",
			ArgsUsage: "[PATH]",
			Action: func(c *cli.Context) error {
				path := c.Args().First()
				if path == "" {
					path = "lexicard.toml"
				}
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config: %s already exists", path)
				}
				if err := config.Default().Save(path); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
				return nil
			},
		},
		{
			Name:  "show",
			Usage: "print the effective configuration",
			Action: func(c *cli.Context) error {
				cfg, err := config.Load(c.String("config"))
				if err != nil {
					return err
				}
				if p := c.String("db"); p != "" {
					cfg.Database.Path = p
				}
				return toml.NewEncoder(c.App.Writer).Encode(cfg)
			},
		},
	},
}
