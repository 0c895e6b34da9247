package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jonathan/course-ingest/internal/invite"
	"github.com/spf13/cobra"
)

var parseInviteCmd = &cobra.Command{
	Use:   "parse-invite",
	Short: "Extract meeting fields from a pasted video-call invite",
	Long:  "Reads invite text from --in or stdin and prints the meeting URL, id, passcode, topic and time it finds as JSON.",
	RunE:  runParseInvite,
}

var (
	parseInviteIn   string
	parseInviteHTML bool
)

func init() {
	parseInviteCmd.Flags().StringVarP(&parseInviteIn, "in", "i", "", "Path to the invite (default stdin)")
	parseInviteCmd.Flags().BoolVar(&parseInviteHTML, "html", false, "Treat the input as HTML")
	rootCmd.AddCommand(parseInviteCmd)
}

func runParseInvite(cmd *cobra.Command, _ []string) error {
	var (
		content []byte
		err     error
	)
	if parseInviteIn != "" {
		content, err = os.ReadFile(parseInviteIn)
	} else {
		content, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read invite: %w", err)
	}

	if !parseInviteHTML {
		return writeJSON(cmd.OutOrStdout(), invite.Parse(string(content)))
	}
	parsed, err := invite.ParseHTML(string(content))
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), parsed)
}
