package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	return newRootCommandWith(ctx)
}

func newRootCommandWith(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bookgen",
		Short:         "Generate and analyze books with an LLM pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configDir, "config", "c", "configs", "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&ctx.store, "store", storeMemory, "Persistence backend: memory or postgres")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOut, "json", false, "Print results as JSON")

	rootCmd.AddCommand(newOutlineCommand(ctx))
	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newAnalyzeChapterCommand(ctx))
	rootCmd.AddCommand(newAnalyzeBookCommand(ctx))
	rootCmd.AddCommand(newUsageCommand(ctx))

	return rootCmd
}
