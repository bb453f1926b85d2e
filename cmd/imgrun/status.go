package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imgrun/imgrun"
	"github.com/imgrun/imgrun/internal/common"
	"github.com/imgrun/imgrun/pkg/status"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	statusHistory      bool
	statusHistoryAll   bool
	statusHistoryLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run counts and the latest generation run, optionally with history",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		configPath := v.GetString("config")

		dir := strings.TrimSpace(v.GetString("jobs"))
		var storeCfg *imgrun.StoreConfig

		doc, err := loadConfigDoc(cmd, configPath, false)
		if err != nil {
			return err
		}
		if doc != nil {
			if dir == "" {
				jDir := strings.TrimSpace(doc.JobsDir)
				if jDir == "" {
					// Fallback: use config file directory if jobs_dir not specified
					jDir = filepath.Dir(configPath)
				}
				dir = jDir
			}
			storeCfg, err = doc.ToStoreOptions()
			if err != nil {
				common.GetLogger().WithComponent("cli").Warn("invalid store config, using default", "error", err)
				storeCfg = nil
			}
		}
		if dir == "" {
			dir = "./jobs"
		}

		info, err := status.FromOptions(dir, storeCfg)
		if err != nil {
			return err
		}
		if statusHistory {
			fmt.Print(info.FormatHumanWithLimit(true, statusHistoryLimit, statusHistoryAll))
		} else {
			fmt.Print(info.FormatHuman(false))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusHistory, "history", false, "show generation run history as well")
	statusCmd.Flags().BoolVar(&statusHistoryAll, "history-all", false, "when used with --history, show all history entries (newest first)")
	statusCmd.Flags().IntVar(&statusHistoryLimit, "history-limit", 10, "when used with --history, show up to N latest entries (default 10)")
}
