package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rollcall",
	Short: "Real-time classroom attendance from camera frames",
	Long: `Rollcall is a classroom attendance engine. It matches faces in camera
frames against a roster of enrolled students and marks each recognized
student present for the duration of a class session.

Face detection and embedding extraction run on a separate embedding
server; rollcall handles the roster, the matching and the session state.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
