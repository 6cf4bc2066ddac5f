package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "truckflow",
	Short: "AI dispatcher assistant for trucking load requests",
	Long: `A service that turns inbound phone calls and SMS messages into
structured load requests using speech-to-text and LLM extraction,
and notifies the owner for approval.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
