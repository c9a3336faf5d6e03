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

	"github.com/notargets/gosfc/layers"
)

// SizeCmd represents the size command
var SizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the convolution and fully connected layer sizes for a mesh",
	Long: `
Computes the stride-s convolution stages, decoder output paddings and fully connected widths that
take a mesh of the given number of points down to the latent space.

gosfc size --size 10000 --stride 2 --latent 32`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			p    layers.SizingParams
			plan *layers.Plan
		)
		p.Size, _ = cmd.Flags().GetInt("size")
		p.Stride, _ = cmd.Flags().GetInt("stride")
		p.LatentDim, _ = cmd.Flags().GetInt("latent")
		p.NumCurves, _ = cmd.Flags().GetInt("curves")
		p.InputChannels, _ = cmd.Flags().GetInt("channels")
		p.ChannelGrowth, _ = cmd.Flags().GetInt("growth")
		p.FinalChannels, _ = cmd.Flags().GetInt("final")
		if plan, err = layers.FindSizes(p); err != nil {
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), plan.String())
		return
	},
}

func init() {
	rootCmd.AddCommand(SizeCmd)
	SizeCmd.Flags().IntP("size", "n", 0, "number of mesh points")
	SizeCmd.Flags().IntP("stride", "s", 2, "convolution stride")
	SizeCmd.Flags().IntP("latent", "l", 32, "latent space dimension")
	SizeCmd.Flags().IntP("curves", "c", 2, "number of space filling curves")
	SizeCmd.Flags().Int("channels", 1, "input channels, the field components")
	SizeCmd.Flags().Int("growth", 2, "channel growth factor per stage")
	SizeCmd.Flags().Int("final", 64, "channels after the last stage")
}
