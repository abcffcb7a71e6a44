package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Corphon/ScribeNest/internal/account"
	"github.com/Corphon/ScribeNest/internal/models"
)

var (
	memberLevel   string
	memberUntil   string
	memberMonthly int64
	memberDaily   int

	quotaRemaining int64
	quotaDaily     int
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "会员管理",
}

var memberGrantCmd = &cobra.Command{
	Use:   "grant <userId>",
	Short: "设置用户的会员等级与额度",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var until *time.Time
		if memberUntil != "" {
			t, err := time.Parse("2006-01-02", memberUntil)
			if err != nil {
				return fmt.Errorf("--until 格式应为 YYYY-MM-DD: %w", err)
			}
			until = &t
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.Membership().Grant(cmd.Context(), args[0], models.MemberLevel(memberLevel), until, memberMonthly, memberDaily)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s 已设置为%s\n", m.UserID, m.Level.Label())
		return nil
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "字数额度管理",
}

var quotaSetCmd = &cobra.Command{
	Use:   "set <userId>",
	Short: "设置剩余字数与每日上限",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := a.Membership().SetWordQuota(cmd.Context(), args[0], quotaRemaining, quotaDaily)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s 剩余字数 %d，每日 %d/%d\n", q.UserID, q.RemainingQuota, q.RemainingDailyUsage, q.DailyUsageLimit)
		return nil
	},
}

var accountCmd = &cobra.Command{
	Use:   "account <userId>",
	Short: "查看用户的账号面板数据",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Store.UserByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		snap := account.Lookup(cmd.Context(), a.AccountSource(), user.ID, a.Logger)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(account.BuildView(user, snap))
	},
}

func init() {
	memberGrantCmd.Flags().StringVar(&memberLevel, "level", string(models.MemberNormal), "会员等级: free | normal | gold | black_gold")
	memberGrantCmd.Flags().StringVar(&memberUntil, "until", "", "到期日期 YYYY-MM-DD")
	memberGrantCmd.Flags().Int64Var(&memberMonthly, "monthly", 0, "每月剩余额度")
	memberGrantCmd.Flags().IntVar(&memberDaily, "daily", 0, "每日使用上限")
	memberCmd.AddCommand(memberGrantCmd)

	quotaSetCmd.Flags().Int64Var(&quotaRemaining, "remaining", 0, "剩余字数")
	quotaSetCmd.Flags().IntVar(&quotaDaily, "daily", 0, "每日上限")
	quotaCmd.AddCommand(quotaSetCmd)
}
