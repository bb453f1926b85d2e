package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "imgrun",
	Short: "Run text-to-image generation jobs defined in YAML files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd)
	},
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", "./config/config.yaml")
	v.SetDefault("jobs", "")
	v.SetDefault("v", false)

	// Environment variables support: IMGRUN_CONFIG, IMGRUN_JOBS, ...
	v.SetEnvPrefix("IMGRUN")
	v.AutomaticEnv()
	// Bind flags via Cobra and then bind to Viper
	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml (like examples/basic/config.yaml)")
	rootCmd.PersistentFlags().String("jobs", v.GetString("jobs"), "directory holding job yaml files (overrides jobs_dir from config)")
	rootCmd.PersistentFlags().BoolP("v", "v", v.GetBool("v"), "verbose logging (debug level)")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("jobs", rootCmd.PersistentFlags().Lookup("jobs"))
	_ = v.BindPFlag("v", rootCmd.PersistentFlags().Lookup("v"))

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(stubCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
