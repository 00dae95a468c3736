// Package main 是 plateful 命令行：导入餐厅目录、记录投票、生成推荐、管理收藏与浏览历史。
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	seedPath   string
)

var rootCmd = &cobra.Command{
	Use:           "plateful",
	Short:         "Personalized restaurant recommendations",
	Long:          "plateful scores restaurants against a user's up/down votes (tags, cuisine and price affinity) and manages the vote, catalog and user-data stores behind it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML settings file (env PLATEFUL_* overrides)")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "Catalog file (JSON/YAML) loaded before the command runs")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
