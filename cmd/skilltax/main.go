package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cenkalti/skilltax"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	// Secrets come from .env when it exists, otherwise from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	skilltax.Config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	skilltax.Config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	skilltax.Config.AzureOpenAIEndpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	skilltax.Config.AzureOpenAIAPIKey = os.Getenv("AZURE_OPENAI_API_KEY")
	skilltax.Config.AzureOpenAIDeployment = os.Getenv("AZURE_OPENAI_DEPLOYMENT")
	skilltax.Config.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	skilltax.Config.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	rootCmd := &cobra.Command{
		Use:               "skilltax",
		Short:             "Build a two-level skills taxonomy from skill descriptions",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./skilltax.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(skilltax.LoadSkillsCmd)
	rootCmd.AddCommand(skilltax.EmbedSkillsCmd)
	rootCmd.AddCommand(skilltax.ClusterSkillsCmd)
	rootCmd.AddCommand(skilltax.InformativeWordsCmd)
	rootCmd.AddCommand(skilltax.NameClustersCmd)
	rootCmd.AddCommand(skilltax.AddLabelsCmd)
	rootCmd.AddCommand(skilltax.GenerateTreeCmd)
	rootCmd.AddCommand(skilltax.UploadOutputsCmd)
	rootCmd.AddCommand(skilltax.ClosestSkillsCmd)
	rootCmd.AddCommand(skilltax.ConfigCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanCmd)

	err := rootCmd.Execute()
	_ = zap.L().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initConfig loads the settings and installs the global logger.
func initConfig(cmd *cobra.Command, args []string) error {
	settings, err := skilltax.LoadSettings(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		settings.Log.Level = "debug"
	}
	logger, err := skilltax.NewLogger(settings.Log)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	skilltax.Pipeline = settings
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: load-skills -> embed-skills -> cluster-skills -> informative-words -> add-labels -> generate-tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		zap.L().Info("running full pipeline")
		stages := []*cobra.Command{
			skilltax.LoadSkillsCmd,
			skilltax.EmbedSkillsCmd,
			skilltax.ClusterSkillsCmd,
			skilltax.InformativeWordsCmd,
			skilltax.AddLabelsCmd,
			skilltax.GenerateTreeCmd,
		}
		for _, stage := range stages {
			stage.SetContext(cmd.Context())
			if err := stage.RunE(stage, nil); err != nil {
				return fmt.Errorf("%s: %w", stage.Name(), err)
			}
		}
		zap.L().Info("pipeline complete")
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the outputs directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := skilltax.Pipeline.OutputDir
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		zap.L().Info("cleaned outputs", zap.String("dir", dir))
		return nil
	},
}
