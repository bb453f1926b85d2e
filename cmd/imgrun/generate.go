package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/imgrun/imgrun"
	"github.com/imgrun/imgrun/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run generation jobs and save the returned images",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd)
	},
}

// runGenerate is the shared entry for the root command and `generate`.
func runGenerate(cmd *cobra.Command) error {
	v := viper.GetViper()
	configPath := v.GetString("config")
	verbose := v.GetBool("v")
	ctx := context.Background()

	baseEnv := imgrun.NewEnv()
	dir := strings.TrimSpace(v.GetString("jobs"))
	tokenEnv := ""
	saveResp := false
	var storeCfg *imgrun.StoreConfig

	doc, err := loadConfigDoc(cmd, configPath, verbose)
	if err != nil {
		return err
	}
	if doc != nil {
		doc.ApplyLogging(verbose)
		baseEnv = doc.GetEnv(verbose)
		ctx = clientContext(ctx, doc.Client)
		if err := doWait(ctx, baseEnv, doc.Wait, verbose); err != nil {
			return err
		}
		if dir == "" {
			dir = strings.TrimSpace(doc.JobsDir)
		}
		tokenEnv = strings.TrimSpace(doc.Auth.TokenEnv)
		saveResp = doc.Store.SaveResponseBody
		storeCfg, err = doc.ToStoreOptions()
		if err != nil {
			return err
		}
	}
	if dir == "" {
		dir = "./jobs"
	}

	logger := common.GetLogger().WithComponent("cli")
	logger.Debug("running generation jobs", "dir", dir)

	st, err := imgrun.OpenStoreFromOptions(dir, storeCfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	g := imgrun.Generator{
		Env:              baseEnv,
		Dir:              dir,
		Store:            st,
		SaveResponseBody: saveResp,
		TokenEnv:         tokenEnv,
	}
	results, err := g.Run(ctx)
	if err != nil {
		return err
	}

	saved, failed := 0, 0
	for _, r := range results {
		if r.Saved {
			saved++
		}
		if r.Failed {
			failed++
		}
	}
	logger.Info("generation run finished", "jobs", len(results), "saved", saved, "failed", failed)
	return nil
}

// loadConfigDoc loads the config when present. A missing file at the default
// path is tolerated; an explicitly configured missing path is an error.
func loadConfigDoc(cmd *cobra.Command, configPath string, verbose bool) (*ConfigDoc, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		explicit := cmd != nil && cmd.Flags().Changed("config")
		if explicit || os.Getenv("IMGRUN_CONFIG") != "" {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, nil
	}
	if verbose {
		common.GetLogger().WithComponent("cli").Debug("loading config", "path", path)
	}
	var doc ConfigDoc
	if err := doc.Load(path); err != nil {
		return nil, err
	}
	return &doc, nil
}

// clientContext applies the client TLS section onto the dispatch context.
func clientContext(ctx context.Context, cc ClientConfig) context.Context {
	if cc.Insecure {
		ctx = imgrun.WithTLSInsecure(ctx, true)
	}
	if s := strings.TrimSpace(cc.MinTLSVersion); s != "" {
		ctx = imgrun.WithTLSMinVersion(ctx, s)
	}
	if s := strings.TrimSpace(cc.MaxTLSVersion); s != "" {
		ctx = imgrun.WithTLSMaxVersion(ctx, s)
	}
	return ctx
}
