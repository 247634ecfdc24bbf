package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "sos-dispatch-api",
	Short: "Emergency dispatch service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv(cmd)
	},
	RunE: serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "dotenv file loaded before reading the environment")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadEnv reads the dotenv file when it exists and installs the global logger
// for the resulting ENV. Values already present in the environment win. A
// missing default file is not an error.
func loadEnv(cmd *cobra.Command) error {
	err := godotenv.Load(envFile)
	config.InitLogger(os.Getenv("ENV"))
	if err == nil {
		return nil
	}
	if cmd.Flags().Changed("env-file") {
		zap.S().With(zap.Error(err)).Errorw("failed to load dotenv file", "path", envFile)
		return err
	}
	zap.S().Debugw("no dotenv file loaded", "path", envFile)
	return nil
}
