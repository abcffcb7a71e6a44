package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Corphon/ScribeNest/internal/services"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "导入初始数据",
}

var seedPromptsCmd = &cobra.Command{
	Use:   "prompts <file.yaml>",
	Short: "导入推荐提示词，相同 id 的条目会被覆盖",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		seeds, err := services.ParsePromptSeed(f)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Prompts().Seed(cmd.Context(), seeds)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ 已导入 %d 条推荐提示词\n", n)
		return nil
	},
}

func init() {
	seedCmd.AddCommand(seedPromptsCmd)
}
