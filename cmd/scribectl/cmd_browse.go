package main

import (
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/prompts"
	"github.com/Corphon/ScribeNest/internal/tui"
)

var (
	browseType     string
	browseUser     string
	browseSelected string
	browseStyle    string
	associateUser  string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "提示词",
}

var promptsBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "在终端中浏览并选择提示词",
	RunE: func(cmd *cobra.Command, args []string) error {
		promptType := models.PromptType(browseType)
		if !promptType.Valid() {
			return fmt.Errorf("不支持的提示词类型: %s", browseType)
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		loader := prompts.NewLoader(a.Prompts().ForUser(browseUser), 15*time.Second, a.Logger)
		picker := tui.NewPromptPicker(cmd.Context(), prompts.New(promptType, browseSelected), loader, browseStyle)
		final, err := tea.NewProgram(picker, tea.WithAltScreen()).Run()
		if err != nil {
			return err
		}

		chosen := final.(tui.PromptPicker).Chosen()
		if chosen == nil {
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(chosen)
	},
}

var chaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "章节",
}

var chaptersAssociateCmd = &cobra.Command{
	Use:   "associate <workId>",
	Short: "在终端中选择作品的关联章节并保存",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		works := a.Works()
		sel, err := works.OpenSelector(associateUser, args[0])
		if err != nil {
			return err
		}

		final, err := tea.NewProgram(tui.NewChapterPicker(sel)).Run()
		if err != nil {
			return err
		}
		d, ok := final.(tui.ChapterPicker).Decision()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "已取消")
			return nil
		}

		if _, err := works.SaveAssociation(associateUser, args[0], d); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ 已关联 %d 章\n", len(d.SelectedIndices))
		return nil
	},
}

func init() {
	promptsBrowseCmd.Flags().StringVar(&browseType, "type", string(models.PromptAIWriting), "提示词类型: ai_writing | ai_polishing | ai_analysis")
	promptsBrowseCmd.Flags().StringVar(&browseUser, "user", "", "以该用户身份浏览")
	promptsBrowseCmd.Flags().StringVar(&browseSelected, "selected", "", "初始选中的提示词ID")
	promptsBrowseCmd.Flags().StringVar(&browseStyle, "style", "dark", "预览样式: dark | light | notty")
	promptsCmd.AddCommand(promptsBrowseCmd)

	chaptersAssociateCmd.Flags().StringVar(&associateUser, "user", "", "作品所属用户ID")
	_ = chaptersAssociateCmd.MarkFlagRequired("user")
	chaptersCmd.AddCommand(chaptersAssociateCmd)
}
