package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coolbeans/sc2patches/pkg/bulk"
	"github.com/coolbeans/sc2patches/pkg/document"
	"github.com/coolbeans/sc2patches/pkg/metrics"
	"github.com/coolbeans/sc2patches/pkg/normalize"
	"github.com/coolbeans/sc2patches/pkg/pattern"
	"github.com/coolbeans/sc2patches/pkg/pipeline"
	"github.com/coolbeans/sc2patches/pkg/store"
	"github.com/coolbeans/sc2patches/pkg/types"
	"github.com/coolbeans/sc2patches/pkg/validate"
	"github.com/coolbeans/sc2patches/pkg/watch"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sc2patches",
		Short: "StarCraft II patch-notes normalizer",
		Long: `sc2patches turns saved StarCraft II patch-notes pages into
per-patch JSON files of balance changes.

Each page is located (news blog or wiki layout), its layout convention is
detected, the content is normalized into a section/race/entity/change tree,
and every change is attributed to a catalog entity.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "YAML config file")
	cmd.PersistentFlags().String("catalog", "", "Entity catalog JSON (default data/entities.json)")
	cmd.PersistentFlags().String("policy", "", "Attribution policy YAML (default data/attribution.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "Log format: console or json")

	cmd.AddCommand(parseCmd())
	cmd.AddCommand(detectCmd())
	cmd.AddCommand(treeCmd())
	cmd.AddCommand(batchCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(validateCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(statsCmd())
	cmd.AddCommand(catalogCmd())

	return cmd
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Process one saved page",
		Long: `Run the full pipeline on one saved page and print the patch JSON, or
write it to {output}/{version}.json.

Example:
  sc2patches parse --file data/raw_html/starcraft-ii-5-0-11.html
  sc2patches parse --file page.html --version 5.0.11 --output data/processed/patches
  sc2patches parse --file page.html --group`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			patchVersion, _ := cmd.Flags().GetString("version")
			url, _ := cmd.Flags().GetString("url")
			output, _ := cmd.Flags().GetString("output")
			group, _ := cmd.Flags().GetBool("group")
			runGates, _ := cmd.Flags().GetBool("validate")

			if file == "" {
				return fmt.Errorf("--file flag is required")
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.pipeline(cmd)
			if err != nil {
				return err
			}
			result, err := p.ProcessFile(cmd.Context(), pipeline.Source{Path: file, Version: patchVersion, URL: url})
			if err != nil {
				return err
			}

			if runGates {
				info, err := os.Stat(file)
				if err != nil {
					return err
				}
				report := validate.NewDefaultPipeline(nil).Run(&validate.Context{
					SourcePath: file,
					SourceSize: info.Size(),
					Patch:      result.Patch,
					Catalog:    a.catalog,
					Tally:      &result.Tally,
				})
				fmt.Fprint(cmd.ErrOrStderr(), report.String())
			}

			if output != "" {
				path, err := store.Write(output, result.Patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d changes to %s (%s layout, %s)\n",
					len(result.Patch.Changes), path, result.Layout, result.Tag)
				return nil
			}

			if group {
				return printJSON(cmd, store.Group(result.Patch))
			}
			return printJSON(cmd, result.Patch)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Saved page (HTML)")
	cmd.Flags().String("version", "", "Patch version, overriding the page")
	cmd.Flags().String("url", "", "Page URL, overriding the page")
	cmd.Flags().StringP("output", "o", "", "Write {version}.json to this directory instead of stdout")
	cmd.Flags().Bool("group", false, "Print changes grouped by entity")
	cmd.Flags().Bool("validate", false, "Print a validation report to stderr")
	cmd.Flags().String("pattern", "", "Force a layout: "+tagNames())

	return cmd
}

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the layout convention of a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			explain, _ := cmd.Flags().GetBool("explain")

			if file == "" {
				return fmt.Errorf("--file flag is required")
			}
			doc, err := readDocument(file)
			if err != nil {
				return err
			}

			detection := pattern.Explain(doc.Content())
			if explain {
				fmt.Fprintf(cmd.OutOrStdout(), "Page: %s (%s)\n", file, doc.Layout)
				fmt.Fprint(cmd.OutOrStdout(), detection.DebugString())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), detection.String())
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "Saved page (HTML)")
	cmd.Flags().Bool("explain", false, "Show every layout check and its matches")

	return cmd
}

func treeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the normalized tree of a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			forced, _ := cmd.Flags().GetString("pattern")
			asJSON, _ := cmd.Flags().GetBool("json")

			if file == "" {
				return fmt.Errorf("--file flag is required")
			}
			doc, err := readDocument(file)
			if err != nil {
				return err
			}

			tag := pattern.Detect(doc.Content())
			if forced != "" {
				if tag, err = pattern.ParseTag(forced); err != nil {
					return err
				}
			}
			nodes := pattern.Parse(tag, doc.Content())

			if asJSON {
				return printJSON(cmd, nodes)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s, %d changes\n", tag, normalize.CountChanges(nodes))
			fmt.Fprint(cmd.OutOrStdout(), normalize.Format(nodes))
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "Saved page (HTML)")
	cmd.Flags().String("pattern", "", "Force a layout: "+tagNames())
	cmd.Flags().Bool("json", false, "Print the tree as JSON")

	return cmd
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every saved page in a directory",
		Long: `Process every *.html page in the HTML directory concurrently. Pages
whose content, catalog and policy are unchanged since the last run are
skipped unless --force is given.

Example:
  sc2patches batch
  sc2patches batch --html-dir pages --output-dir out --workers 8 --metrics-file sc2patches.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if a.config.MetricsFile != "" {
				a.metrics = metrics.New()
			}
			runner, err := a.runner(cmd, force)
			if err != nil {
				return err
			}

			report, err := runner.Run(cmd.Context())
			if report != nil {
				if asJSON {
					fmt.Fprintln(cmd.OutOrStdout(), bulk.FormatReportJSON(report))
				} else {
					fmt.Fprint(cmd.OutOrStdout(), bulk.FormatReport(report))
				}
			}
			if err != nil {
				return err
			}

			if err := a.metrics.WriteTextfile(a.config.MetricsFile); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d pages failed", report.Failed, report.Attempted)
			}
			return nil
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().Bool("force", false, "Reprocess unchanged pages")
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")

	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reprocess pages as they change",
		Long: `Process the HTML directory once, then reprocess pages whenever they are
created or modified, until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			runner, err := a.runner(cmd, false)
			if err != nil {
				return err
			}
			if _, err := runner.Run(cmd.Context()); err != nil {
				return err
			}

			handle := func(ctx context.Context, paths []string) error {
				report, err := runner.Process(ctx, paths)
				if err != nil {
					return err
				}
				for _, entry := range report.Entries {
					a.logger.Info("page updated",
						zap.String("source", entry.Source),
						zap.String("status", entry.Status),
						zap.String("version", entry.Version),
						zap.Int("changes", entry.Changes),
						zap.String("error", entry.Error))
				}
				return nil
			}
			return watch.New(a.config.HTMLDir, handle, watch.WithLogger(a.logger)).Run(cmd.Context())
		},
	}

	addBatchFlags(cmd)

	return cmd
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("html-dir", "", "Directory of saved pages (default data/raw_html)")
	cmd.Flags().String("output-dir", "", "Directory for patch JSON (default data/processed/patches)")
	cmd.Flags().Int("workers", 0, "Pages processed at once (default 4)")
	cmd.Flags().String("cache-dir", "", "Content-addressed result cache")
	cmd.Flags().String("pattern", "", "Force a layout: "+tagNames())
}

func (a *app) runner(cmd *cobra.Command, force bool) (*bulk.Runner, error) {
	p, err := a.pipeline(cmd)
	if err != nil {
		return nil, err
	}

	opts := []bulk.Option{bulk.WithLogger(a.logger)}
	if a.config.CacheDir != "" {
		cache, err := bulk.NewDiskCache(a.config.CacheDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, bulk.WithCache(cache))
	}

	return bulk.NewRunner(bulk.Config{
		HTMLDir:   a.config.HTMLDir,
		OutputDir: a.config.OutputDir,
		Workers:   a.config.Workers,
		Force:     force,
		CacheSalt: a.cacheSalt(),
	}, p, opts...), nil
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run quality gates over processed patches",
		Long: `Check every processed patch against four gates:
  V0  saved page present and plausibly sized
  V1  version, ISO date and URL recorded
  V2  share of changes attributed to a catalog entity
  V3  ids, versions, text and entity ids consistent

Thresholds can be overridden with a YAML profile:
  thresholds:
    V2.resolved_entities: 0.75
  skip_gates: [V0]
  strict: false
  fail_on_warn: false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, _ := cmd.Flags().GetString("profile")
			verbose, _ := cmd.Flags().GetBool("verbose")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			gateConfig := validate.DefaultConfig()
			if profile != "" {
				if gateConfig, err = validate.LoadConfig(profile); err != nil {
					return err
				}
			}

			contexts, err := validate.CollectDir(a.config.OutputDir, a.config.HTMLDir, a.catalog)
			if err != nil {
				return err
			}

			gates := validate.NewDefaultPipeline(gateConfig)
			out := cmd.OutOrStdout()
			reports := make([]*validate.Report, 0, len(contexts))
			failed := 0
			for _, ctx := range contexts {
				report := gates.Run(ctx)
				reports = append(reports, report)
				if !report.OverallPass {
					failed++
				}
				if !asJSON && (verbose || !report.OverallPass) {
					fmt.Fprintln(out, report.String())
				}
			}

			if asJSON {
				if err := printJSON(cmd, reports); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Validated %d patches: %d passed, %d failed\n", len(reports), len(reports)-failed, failed)
			}
			if failed > 0 {
				return fmt.Errorf("%d patches failed validation", failed)
			}
			return nil
		},
	}

	cmd.Flags().String("output-dir", "", "Directory of processed patches")
	cmd.Flags().String("html-dir", "", "Directory of saved pages")
	cmd.Flags().String("profile", "", "YAML validation profile")
	cmd.Flags().BoolP("verbose", "v", false, "Print every report, not only failures")
	cmd.Flags().Bool("json", false, "Print reports as JSON")

	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <entity-id>",
		Short: "List an entity's changes across processed patches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			index, err := store.LoadIndex(cfg.OutputDir)
			if err != nil {
				return err
			}

			changes := index.Find(args[0], "")
			if len(changes) == 0 {
				return fmt.Errorf("no changes recorded for %s", args[0])
			}
			out := cmd.OutOrStdout()
			current := ""
			for _, c := range changes {
				if c.PatchVersion != current {
					current = c.PatchVersion
					fmt.Fprintf(out, "\n%s\n", current)
				}
				line := "  - " + c.RawText
				if c.ChangeType != "" {
					line += " [" + c.ChangeType + "]"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().String("output-dir", "", "Directory of processed patches")

	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize processed patches",
		RunE: func(cmd *cobra.Command, args []string) error {
			top, _ := cmd.Flags().GetInt("top")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			index, err := store.LoadIndex(cfg.OutputDir)
			if err != nil {
				return err
			}
			stats := index.Stats(top)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Patches:  %d\n", stats.Patches)
			fmt.Fprintf(out, "Changes:  %d\n", stats.Changes)
			fmt.Fprintf(out, "Entities: %d\n", stats.Entities)
			fmt.Fprintln(out, "\nBy section:")
			for _, name := range sortedKeys(stats.SectionCounts) {
				fmt.Fprintf(out, "  %-16s %d\n", name, stats.SectionCounts[name])
			}
			if len(stats.ChangeTypes) > 0 {
				fmt.Fprintln(out, "\nBy change type:")
				for _, name := range sortedKeys(stats.ChangeTypes) {
					fmt.Fprintf(out, "  %-16s %d\n", name, stats.ChangeTypes[name])
				}
			}
			fmt.Fprintf(out, "\nMost changed entities:\n")
			for _, e := range stats.TopEntities {
				fmt.Fprintf(out, "  %-32s %d\n", e.EntityID, e.Changes)
			}
			return nil
		},
	}

	cmd.Flags().String("output-dir", "", "Directory of processed patches")
	cmd.Flags().Int("top", 10, "Number of entities to list")

	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the entity catalog",
	}
	cmd.AddCommand(catalogValidateCmd())
	cmd.AddCommand(catalogListCmd())
	return cmd
}

func catalogValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog and attribution policy and report problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Catalog %s: %d entities\n", a.config.CatalogPath, a.catalog.Len())
			for _, faction := range types.Factions {
				fmt.Fprintf(out, "  %-8s %d\n", faction, len(a.catalog.ByFaction(faction)))
			}
			fmt.Fprintf(out, "Policy %s: %d regroup rules\n", a.config.PolicyPath, a.policy.Len())
			return nil
		},
	}
}

func catalogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			factionName, _ := cmd.Flags().GetString("faction")

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			entities := a.catalog.Entities()
			if factionName != "" {
				faction, err := types.ParseFaction(factionName)
				if err != nil {
					return err
				}
				entities = a.catalog.ByFaction(faction)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-36s %-28s %-8s %s\n", "ID", "NAME", "FACTION", "TYPE")
			fmt.Fprintln(out, strings.Repeat("─", 84))
			for _, e := range entities {
				parent := a.policy.Attribute(e.ID)
				line := fmt.Sprintf("%-36s %-28s %-8s %s", e.ID, e.Name, e.Faction, e.Kind)
				if parent != e.ID {
					line += " -> " + parent
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "\nTotal: %d entities\n", len(entities))
			return nil
		},
	}

	cmd.Flags().String("faction", "", "Only list one faction")

	return cmd
}

func readDocument(path string) (*document.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	doc, err := document.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

func tagNames() string {
	names := make([]string, len(pattern.Tags))
	for i, tag := range pattern.Tags {
		names[i] = tag.String()
	}
	return strings.Join(names, ", ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
