/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gosfc/cache"
)

// CacheCmd groups the ordering cache maintenance commands
var CacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the ordering cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry of a file cache",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = viper.GetString("cache_dir")
		}
		if dir == "" {
			return fmt.Errorf("must supply the cache directory (--dir) or cache_dir in the config file")
		}
		var fc *cache.FileCache
		if fc, err = cache.NewFileCache(dir); err != nil {
			return
		}
		if err = fc.Clear(); err != nil {
			return
		}
		loggerFromContext(cmd.Context()).Info("cache cleared", "dir", dir)
		return
	},
}

func init() {
	rootCmd.AddCommand(CacheCmd)
	CacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().String("dir", "", "file cache directory")
}
