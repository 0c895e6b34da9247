package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateDBURL string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables if they do not exist",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDBURL, "db-url", "", "Database URL (default DATABASE_URL)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), appOptions{dbURL: migrateDBURL, requireDB: true, noLLM: true})
	if err != nil {
		return err
	}
	defer a.Close()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
	return nil
}
