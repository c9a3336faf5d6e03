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
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gosfc/InputParameters"
	"github.com/notargets/gosfc/cache"
	"github.com/notargets/gosfc/connectivity"
	"github.com/notargets/gosfc/layers"
	"github.com/notargets/gosfc/pipeline"
	"github.com/notargets/gosfc/progress"
	"github.com/notargets/gosfc/readfiles"
	"github.com/notargets/gosfc/types"
)

type OrderRun struct {
	InputFile  string
	OutputFile string
	Quiet      bool
}

// OrderCmd represents the order command
var OrderCmd = &cobra.Command{
	Use:   "order",
	Short: "Compute space filling curve orderings for a snapshot series",
	Long: `
Reads the snapshot series named in the input file, computes (or loads from the cache) the curve
orderings of every mesh topology, reorders the field along every curve and prints the layer plan.

gosfc order -I params.yaml -o orderings.sfc`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		or := &OrderRun{}
		if or.InputFile, err = cmd.Flags().GetString("inputFile"); err != nil {
			return
		}
		or.OutputFile, _ = cmd.Flags().GetString("output")
		or.Quiet, _ = cmd.Flags().GetBool("quiet")
		if len(or.InputFile) == 0 {
			fmt.Printf("Example File:%s\n", exampleFile)
			return fmt.Errorf("must supply an input parameters file (-I, --inputFile)")
		}
		return RunOrder(cmd.Context(), or, os.Stdout)
	},
}

var exampleFile = `
########################################
Title: "Flow past a cylinder"
DataPath: "run/flow_"     # Reads run/flow_0.vtu, run/flow_1.vtu ...
Field: "Velocity"
NumCurves: 2
GraphTrim: -10
Cache:
  Kind: file              # none, memory, file or redis
  Dir: .gosfc-cache
  Compression: zstd
########################################
`

func init() {
	rootCmd.AddCommand(OrderCmd)
	OrderCmd.Flags().StringP("inputFile", "I", "", "YAML file for input parameters")
	OrderCmd.Flags().StringP("output", "o", "", "write the encoded orderings of the first mesh to this file")
	OrderCmd.Flags().BoolP("quiet", "q", false, "do not print the parameters and the layer plan")
}

// userDefaults fills settings the input file leaves out from the user config file
func userDefaults(ip *InputParameters.SFCParameters) {
	if dir := viper.GetString("cache_dir"); dir != "" {
		ip.Cache.Kind, ip.Cache.Dir = "file", dir
	}
	if addr := viper.GetString("redis_addr"); addr != "" {
		ip.Cache.RedisAddr = addr
	}
	if np := viper.GetInt("parallelism"); np > 0 {
		ip.Parallelism = np
	}
}

func openCache(ctx context.Context, cp InputParameters.CacheParameters) (c cache.Cache, err error) {
	switch strings.ToLower(cp.Kind) {
	case "file":
		var fc *cache.FileCache
		if fc, err = cache.NewFileCache(cp.Dir); err == nil {
			c = fc
		}
	case "redis":
		var rc *cache.RedisCache
		if rc, err = cache.NewRedisCache(ctx, cp.RedisAddr, ""); err == nil {
			c = rc
		}
	case "memory":
		c = cache.NewMemoryCache()
	default:
		c = cache.NewNullCache()
	}
	return
}

// cacheSettings parses the entry lifetime and the codec of the ordering cache
func cacheSettings(ip *InputParameters.SFCParameters) (ttl time.Duration, comp cache.CompressionType, err error) {
	if ttl, err = ip.CacheTTL(); err != nil {
		return
	}
	if comp, err = cache.ParseCompression(ip.Cache.Compression); err != nil {
		err = fmt.Errorf("cache compression: %w", err)
	}
	return
}

func RunOrder(ctx context.Context, or *OrderRun, w io.Writer) (err error) {
	var (
		logger = loggerFromContext(ctx)
		ip     = InputParameters.NewSFCParameters()
		sw     = newStopwatch(logger)
	)
	userDefaults(ip)
	if err = ip.ReadFile(or.InputFile); err != nil {
		return
	}
	if !or.Quiet {
		ip.Fprint(w)
	}
	var sf *readfiles.SeriesFiles
	if sf, err = readfiles.DiscoverSeries(ip.DataPath, ip.FileFormat); err != nil {
		return
	}
	obs := progress.NewLogObserver(logger)
	var series *readfiles.Series
	if series, err = readfiles.ReadSeries(ctx, sf, ip.Field, readfiles.ReadOptions{
		Parallelism: ip.Parallelism,
		Observer:    obs,
	}); err != nil {
		return
	}
	var (
		oc   cache.Cache
		ttl  time.Duration
		comp cache.CompressionType
	)
	if ttl, comp, err = cacheSettings(ip); err != nil {
		return
	}
	if oc, err = openCache(ctx, ip.Cache); err != nil {
		return
	}
	defer oc.Close()
	opts := []pipeline.Option{
		pipeline.WithGenerator(ip.Generator()),
		pipeline.WithCache(oc),
		pipeline.WithObserver(obs),
		pipeline.WithLogger(logger),
		pipeline.WithNumCurves(ip.NumCurves),
		pipeline.WithNeighbors(ip.Neighbors),
		pipeline.WithCompression(comp),
		pipeline.WithCacheTTL(ttl),
	}
	if ip.Parallelism > 0 {
		opts = append(opts, pipeline.WithParallelism(ip.Parallelism))
	}
	if ip.MeshFile != "" {
		var b connectivity.Builder
		if b, err = meshBuilder(ip.MeshFile, series.NumPoints()); err != nil {
			return
		}
		opts = append(opts, pipeline.WithBuilder(b))
	}
	runner := pipeline.NewRunner(opts...)
	var results []*pipeline.Result
	if results, err = runner.OrderSeries(ctx, series); err != nil {
		return
	}
	var reordered [][][]float64
	if reordered, err = runner.ReorderSeries(ctx, series, results); err != nil {
		return
	}
	sw.done("reordered series", "snapshots", len(series.Data), "segments", len(results), "curves", len(reordered))
	var plan *layers.Plan
	if plan, err = layers.FindSizes(ip.SizingParams(series.NumPoints(), series.Components)); err != nil {
		return
	}
	if !or.Quiet {
		fmt.Fprint(w, plan.String())
	}
	if or.OutputFile != "" {
		var data []byte
		if data, err = cache.EncodeOrderings(results[0].Curves, results[0].Inverses, comp); err != nil {
			return
		}
		if err = os.WriteFile(or.OutputFile, data, 0644); err != nil {
			return
		}
		logger.Info("wrote orderings", "file", or.OutputFile, "bytes", len(data))
	}
	return
}

func meshBuilder(meshFile string, n int) (b connectivity.MeshBuilder, err error) {
	var mesh *readfiles.SU2Mesh
	if mesh, err = readfiles.ReadSU2(meshFile); err != nil {
		return
	}
	if mesh.Points.N() != n {
		err = types.ContractViolation("mesh %s has %d points, the snapshots have %d", meshFile, mesh.Points.N(), n)
		return
	}
	b = connectivity.MeshBuilder{Edges: mesh.EdgeSet()}
	return
}
