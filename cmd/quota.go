package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/contractlink/contract-hub/internal/model"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and manage user view quotas",
}

var quotaStatusCmd = &cobra.Command{
	Use:   "status <user-id>",
	Short: "Show a user's free-view usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		userID := args[0]
		user, err := env.Store.GetUser(cmd.Context(), userID)
		if err != nil {
			return err
		}
		tier := model.TierFree
		if user != nil {
			tier = user.Tier
		}

		used, err := env.Store.GetQuota(cmd.Context(), userID)
		if err != nil {
			return err
		}

		q := model.Quota{UserID: userID, ViewsUsed: used, Limit: env.Gate.Limit()}
		if tier.Unlimited() {
			fmt.Printf("%s\ttier=%s\tunlimited\n", userID, tier)
			return nil
		}
		fmt.Printf("%s\ttier=%s\tused=%d/%d\tremaining=%d\n", userID, tier, q.ViewsUsed, q.Limit, q.Remaining())
		return nil
	},
}

var upgradeTier string

var quotaUpgradeCmd = &cobra.Command{
	Use:   "set-tier <user-id>",
	Short: "Change a user's tier; upgrading resets their view counter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier := model.Tier(upgradeTier)
		if !tier.Valid() || tier == model.TierAnonymous {
			return eris.Errorf("invalid tier %q", upgradeTier)
		}

		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		userID := args[0]
		if err := env.Store.SetUserTier(cmd.Context(), userID, tier); err != nil {
			return err
		}
		if tier.Unlimited() {
			if err := env.Store.ResetQuota(cmd.Context(), userID); err != nil {
				return err
			}
		}

		fmt.Printf("%s is now %s\n", userID, tier)
		return nil
	},
}

func init() {
	quotaUpgradeCmd.Flags().StringVar(&upgradeTier, "tier", "paid", "target tier (free, paid, admin)")
	quotaCmd.AddCommand(quotaStatusCmd)
	quotaCmd.AddCommand(quotaUpgradeCmd)
	rootCmd.AddCommand(quotaCmd)
}
