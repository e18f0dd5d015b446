package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "doorman",
	Short: "Doorman is a web-session authentication service",
	Long: `Doorman provides cookie-session authentication with CSRF protection
and remember-me persistent logins for web applications.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
