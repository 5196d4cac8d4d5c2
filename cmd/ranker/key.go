package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/bullet-ranker/internal/llm"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the provider API key",
}

var (
	keySettingsFile string
	keyDatabaseURL  string
)

var keySetCmd = &cobra.Command{
	Use:   "set <api-key>",
	Short: "Store the provider API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, closeStore, err := openStore(ctx, keySettingsFile, keyDatabaseURL)
		if err != nil {
			return err
		}
		defer closeStore()

		keys, err := llm.NewKeyring(ctx, store)
		if err != nil {
			return err
		}
		if err := keys.Set(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("API key stored")
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		store, closeStore, err := openStore(ctx, keySettingsFile, keyDatabaseURL)
		if err != nil {
			return err
		}
		defer closeStore()

		keys, err := llm.NewKeyring(ctx, store)
		if err != nil {
			return err
		}
		if err := keys.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("API key cleared")
		return nil
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether an API key is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		store, closeStore, err := openStore(ctx, keySettingsFile, keyDatabaseURL)
		if err != nil {
			return err
		}
		defer closeStore()

		keys, err := llm.NewKeyring(ctx, store)
		if err != nil {
			return err
		}
		if keys.Get() == "" {
			fmt.Println("no API key stored")
		} else {
			fmt.Println("API key is stored")
		}
		return nil
	},
}

func init() {
	keyCmd.PersistentFlags().StringVar(&keySettingsFile, "settings-file", "", "Path to the settings JSON file")
	keyCmd.PersistentFlags().StringVar(&keyDatabaseURL, "database-url", "", "PostgreSQL connection URL for settings")

	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyClearCmd)
	keyCmd.AddCommand(keyStatusCmd)
	rootCmd.AddCommand(keyCmd)
}
