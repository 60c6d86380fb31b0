package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/domain/repository"
)

func newOutlineCommand(ctx *commandContext) *cobra.Command {
	var chapters int
	cmd := &cobra.Command{
		Use:   "outline <query>",
		Short: "Create a chapter outline without persisting anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := ctx.ensurePipeline(cmd.Context())
			if err != nil {
				return err
			}
			outline, err := pipeline.CreateOutline(cmd.Context(), args[0], chapters)
			if err != nil {
				return err
			}
			if ctx.jsonOut {
				return writeJSON(cmd, outline)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOutline(outline))
			return nil
		},
	}
	cmd.Flags().IntVarP(&chapters, "chapters", "n", 5, "Number of chapters")
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		req     book.GenerationRequest
		analyze bool
	)
	cmd := &cobra.Command{
		Use:   "generate <query>",
		Short: "Generate a complete book: outline, then chapters in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := ctx.ensurePipeline(cmd.Context())
			if err != nil {
				return err
			}
			req.UserQuery = args[0]
			result, err := pipeline.CreateBook(cmd.Context(), req)
			if err != nil {
				return err
			}

			var batch *book.BatchAnalysisResult
			if analyze {
				batch, err = pipeline.AnalyzeBookChapters(cmd.Context(), result.Book.ID, true)
				if err != nil {
					return err
				}
			}

			if ctx.jsonOut {
				return writeJSON(cmd, struct {
					*book.GenerationResult
					Analysis *book.BatchAnalysisResult `json:"analysis,omitempty"`
				}{result, batch})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderGeneration(result))
			if batch != nil {
				fmt.Fprintln(out, renderBatch(batch))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&req.TotalChapters, "chapters", "n", 5, "Number of chapters")
	cmd.Flags().StringVar(&req.AuthorID, "author", "", "Author id stored on the book")
	cmd.Flags().StringVar(&req.Genre, "genre", "", "Genre hint stored on the book")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Analyze every chapter and the whole book afterwards")
	return cmd
}

func newAnalyzeChapterCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze-chapter <chapter-id>",
		Short: "Analyze one chapter and store its index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := ctx.ensurePipeline(cmd.Context())
			if err != nil {
				return err
			}
			analysis, err := pipeline.AnalyzeChapter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOut {
				return writeJSON(cmd, analysis)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderChapterAnalysis(analysis))
			return nil
		},
	}
}

func newAnalyzeBookCommand(ctx *commandContext) *cobra.Command {
	var withChapters bool
	cmd := &cobra.Command{
		Use:   "analyze-book <book-id>",
		Short: "Analyze a book from its chapter indexes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := ctx.ensurePipeline(cmd.Context())
			if err != nil {
				return err
			}
			if withChapters {
				batch, err := pipeline.AnalyzeBookChapters(cmd.Context(), args[0], true)
				if err != nil {
					return err
				}
				if ctx.jsonOut {
					return writeJSON(cmd, batch)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderBatch(batch))
				return nil
			}
			analysis, err := pipeline.AnalyzeBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOut {
				return writeJSON(cmd, analysis)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBookAnalysis(analysis))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withChapters, "chapters", false, "Analyze every chapter before the book")
	return cmd
}

func newUsageCommand(ctx *commandContext) *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "usage <book-id>",
		Short: "Show LLM tokens spent on a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensurePipeline(cmd.Context()); err != nil {
				return err
			}
			sum, err := ctx.usage.BookUsage(cmd.Context(), args[0], window)
			if err != nil {
				return err
			}
			if ctx.jsonOut {
				return writeJSON(cmd, struct {
					BookID string `json:"book_id"`
					Window string `json:"window"`
					repository.UsageSummary
				}{args[0], window.String(), sum})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields([][2]string{
				{"Book", args[0]},
				{"Window", window.String()},
				{"Calls", fmt.Sprintf("%d (%d failed)", sum.Calls, sum.FailedCalls)},
				{"Tokens", fmt.Sprintf("%d (%d estimated)", sum.Tokens, sum.EstimatedTokens)},
			}))
			return nil
		},
	}
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "Look-back window")
	return cmd
}
