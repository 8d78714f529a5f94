package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/phoenix/internal/analysis"
	"github.com/efebarandurmaz/phoenix/internal/app"
	"github.com/efebarandurmaz/phoenix/internal/dispatch"
	"github.com/efebarandurmaz/phoenix/internal/language"
	"github.com/efebarandurmaz/phoenix/internal/llm"
	"github.com/efebarandurmaz/phoenix/internal/llm/providers"
	"github.com/efebarandurmaz/phoenix/internal/transform"
)

func newTransformCmd(g *globals) *cobra.Command {
	var (
		files    []string
		target   string
		jsonOut  bool
		showCode bool
	)
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform legacy files to a target language",
		RunE: func(cmd *cobra.Command, args []string) error {
			files = append(files, args...)
			if len(files) == 0 {
				return fmt.Errorf("no input files")
			}
			ctx := context.Background()
			a, err := app.Build(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			var results []*transform.Result
			for _, path := range files {
				code, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := a.Transform.Transform(ctx, transform.Request{
					Filename:       filepath.Base(path),
					TargetLanguage: target,
					LegacyCode:     string(code),
				})
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				results = append(results, res)
			}
			if jsonOut {
				return printJSON(results)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tSOURCE\tTARGET\tSTRATEGY\tLINES\tREDUCTION")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d -> %d\t%d%%\n",
					r.Filename, r.SourceLanguage, r.TargetLanguage, r.Strategy,
					r.Stats.OriginalLines, r.Stats.TransformedLines, r.Stats.CodeReductionPercent)
			}
			tw.Flush()
			if showCode {
				for _, r := range results {
					fmt.Printf("\n==> %s (%s)\n%s\n", r.Filename, r.TargetLanguage, r.TransformedCode)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&files, "file", nil, "Legacy source file (repeatable)")
	cmd.Flags().StringVar(&target, "target", string(dispatch.DefaultTarget), "Target language label")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&showCode, "show", false, "Print transformed code")
	return cmd
}

func newAnalyzeCmd(g *globals) *cobra.Command {
	var (
		demo    bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <files...>",
		Short: "Assess legacy files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := app.Build(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			files := make([]analysis.File, 0, len(args))
			for _, path := range args {
				code, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, analysis.File{Name: filepath.Base(path), Content: string(code)})
			}
			results := a.Analysis.Analyze(ctx, "", files, demo)
			if jsonOut {
				return printJSON(results)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tLANGUAGE\tMODE\tCOMPLEXITY\tMAINTAINABILITY\tRECOMMENDED")
			for _, r := range results {
				mode := r.Mode
				if r.AIFallback {
					mode += " (ai failed)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.Filename, r.Language, mode,
					r.Analysis.Complexity, r.Analysis.Maintainability, r.Analysis.RecommendedTarget)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "Use prepared records instead of the LLM")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print full records as JSON")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <files...>",
		Short: "Print the legacy language of each file",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tLANGUAGE\tFAMILY\tDETECTED")
			for _, path := range args {
				label := language.Classify(path)
				detected := ""
				if content, err := os.ReadFile(path); err == nil {
					detected = language.DetectContent(path, content)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", path, label, language.FamilyOf(label), detected)
			}
			tw.Flush()
		},
	}
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List target languages",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range dispatch.NewDefaultResolver().Targets() {
				mark := ""
				switch {
				case t.Default:
					mark = "(default)"
				case t.Dedicated:
					mark = "(dedicated)"
				}
				fmt.Printf("  %-26s %s\n", t.Label, mark)
			}
		},
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List recognized legacy file extensions",
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ERA\tEXT\tLANGUAGE")
			for _, e := range language.Extensions() {
				fmt.Fprintf(tw, "%s\t.%s\t%s\n", e.Era, e.Ext, e.Label)
			}
			tw.Flush()
		},
	}
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for _, name := range providers.NewFactory().Names() {
				url, ok := llm.KnownProviders[name]
				if !ok {
					url = "(set llm.base_url to any OpenAI-compatible endpoint)"
				}
				fmt.Printf("  %-14s %s\n", name, url)
			}
			fmt.Println("  none           (demo mode: prepared analysis records only)")
			fmt.Println()
			fmt.Println("Configure in phoenix.yaml or via environment:")
			fmt.Println("  PHOENIX_LLM_PROVIDER=groq")
			fmt.Println("  PHOENIX_LLM_API_KEY=gsk_...")
			fmt.Println("  PHOENIX_LLM_MODEL=llama-3.3-70b-versatile")
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
