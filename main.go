// pushtalk is a push-to-talk voice assistant client.
//
// Usage:
//
//	pushtalk                 # run with a GPIO button
//	pushtalk --console       # run with the terminal UI, space to talk
//	pushtalk --env prod.env  # read settings from prod.env
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	envFile     string
	consoleMode bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "pushtalk",
	Short: "Push-to-talk voice assistant client",
	Long: `pushtalk streams microphone audio to the assistant service while the
button is held, plays the spoken reply and executes device actions such as
switching or blinking a light.

Settings are read from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "environment file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&consoleMode, "console", false, "use the terminal UI instead of a GPIO button")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
