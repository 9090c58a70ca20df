package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"nutrirag/internal/domain"
	"nutrirag/internal/meal"
	"nutrirag/internal/service"
	"nutrirag/internal/tui"
)

func ingestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Load PDF and text documents into the knowledge base",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := a.cfg.DataDir
			if len(args) == 1 {
				dir = args[0]
			}
			emb, err := newEmbedder(ctx, a.cfg.Embedder)
			if err != nil {
				return err
			}
			store, err := newVectorStore(ctx, a.cfg.VectorStore)
			if err != nil {
				return err
			}
			ch, err := newChunker(a.cfg.Chunker)
			if err != nil {
				return err
			}
			rep, err := service.NewPipeline(ch, emb, store, a.log).Ingest(ctx, dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rep.Created {
				fmt.Fprintf(out, "Created %s. Add PDF files there and run ingest again.\n", rep.Dir)
				return nil
			}
			fmt.Fprintf(out, "Ingested %d of %d files, %d chunks.\n", rep.FilesIngested, rep.FilesSeen, rep.Chunks)
			for _, f := range rep.Failed {
				fmt.Fprintf(out, "  failed: %s: %v\n", f.Name, f.Err)
			}
			fmt.Fprintln(out, "Database sync complete.")
			return nil
		},
	}
}

func (a *app) assistant(ctx context.Context) (*service.Assistant, *service.Retriever, error) {
	emb, err := newQueryEmbedder(ctx, a.cfg.Embedder)
	if err != nil {
		return nil, nil, err
	}
	store, err := newVectorStore(ctx, a.cfg.VectorStore)
	if err != nil {
		return nil, nil, err
	}
	gen, err := newGenerator(ctx, a.cfg.Generator)
	if err != nil {
		return nil, nil, err
	}
	r := service.NewRetriever(emb, store)
	return service.NewAssistant(r, gen, a.log), r, nil
}

func askCmd(a *app) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a nutrition question from the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			question := strings.Join(args, " ")
			asst, retriever, err := a.assistant(ctx)
			if err != nil {
				return err
			}
			var answer string
			err = withRetries(ctx, a.retries, func(ctx context.Context) error {
				answer, err = asst.Ask(ctx, question)
				return err
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.TrimSpace(answer))
			if !showSources {
				return nil
			}
			res, err := retriever.Search(ctx, question, a.cfg.Retrieval.TopK)
			if err != nil {
				return err
			}
			for i, r := range res {
				fmt.Fprintf(out, "[%d] %s page %d (distance %.4f)\n", i+1, r.Chunk.Source, r.Chunk.Page, r.Distance)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "list the chunks the answer was grounded on")
	return cmd
}

func analyzeCmd(a *app) *cobra.Command {
	var imagePath string
	cmd := &cobra.Command{
		Use:   "analyze [description]",
		Short: "Estimate the macros of a meal and add it to today's log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req := meal.Request{Description: strings.Join(args, " ")}
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return err
				}
				req.Image = data
			}
			history, err := openMealLog(ctx, a.cfg.MealLog)
			if err != nil {
				return err
			}
			var gen domain.Generator = lazyGenerator{a: a}
			analyzer := meal.NewAnalyzer(gen, history, a.log)

			var res meal.Result
			err = withRetries(ctx, a.retries, func(ctx context.Context) error {
				res, err = analyzer.Analyze(ctx, req)
				return err
			})
			if errors.Is(err, domain.ErrInputMissing) {
				a.log.Warn("Please provide either a photo or a text description.")
				return nil
			}
			if err != nil {
				return err
			}
			printMeal(cmd, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a photo of the meal")
	return cmd
}

// lazyGenerator builds the configured generator on first use so cache hits
// never need a credential.
type lazyGenerator struct{ a *app }

func (g lazyGenerator) Name() string { return g.a.cfg.Generator.Type }

func (g lazyGenerator) Generate(ctx context.Context, parts ...domain.Part) (string, error) {
	gen, err := newGenerator(ctx, g.a.cfg.Generator)
	if err != nil {
		return "", err
	}
	return gen.Generate(ctx, parts...)
}

func printMeal(cmd *cobra.Command, res meal.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (source: %s)\n", res.FoodName, res.Source)
	fmt.Fprintf(out, "  Protein: %.1fg\n  Carbs:   %.1fg\n  Fats:    %.1fg\n", res.Protein, res.Carbs, res.Fats)
	fmt.Fprintf(out, "  Advice:  %s\n", res.Advice)
}

func todayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show the macros logged today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openMealLog(cmd.Context(), a.cfg.MealLog)
			if err != nil {
				return err
			}
			in, err := store.TodayIntake(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d meals\n  Protein: %.1fg\n  Carbs:   %.1fg\n  Fats:    %.1fg\n",
				in.Date, in.Meals, in.Protein, in.Carbs, in.Fats)
			return nil
		},
	}
}

func historyCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently logged meals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openMealLog(cmd.Context(), a.cfg.MealLog)
			if err != nil {
				return err
			}
			recs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No meals logged yet.")
				return nil
			}
			for _, r := range recs {
				fmt.Fprintf(out, "%s  %-30s P %.1f  C %.1f  F %.1f\n", r.Date, r.Food, r.Protein, r.Carbs, r.Fats)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of meals to show")
	return cmd
}

func chatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive knowledge-base chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// Log lines would tear the full-screen UI.
			a.log.SetLevel(charmlog.ErrorLevel)
			asst, retriever, err := a.assistant(ctx)
			if err != nil {
				return err
			}
			history, err := openMealLog(ctx, a.cfg.MealLog)
			if err != nil {
				return err
			}
			m := tui.New(ctx, tui.Backend{
				Assistant: asst,
				Retriever: retriever,
				Analyzer:  meal.NewAnalyzer(lazyGenerator{a: a}, history, a.log),
				Intake:    history,
				TopK:      a.cfg.Retrieval.TopK,
			})
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}
