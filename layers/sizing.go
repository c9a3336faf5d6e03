// Package layers sizes the convolutional autoencoder that consumes curve ordered data
// and holds the neighbor averaging layer that works on the curve stencils.
package layers

import (
	"fmt"
	"math"
	"strings"

	"github.com/notargets/gosfc/types"
)

// FlattenThreshold is the size*channels product below which the convolution output is flattened
const FlattenThreshold = 1200

type SizingParams struct {
	Size          int // Points per curve entering the first convolution
	Stride        int
	LatentDim     int
	NumCurves     int
	InputChannels int
	ChannelGrowth int // Channel multiplier per stage until FinalChannels is reached
	FinalChannels int
}

// Plan is the layer layout of the encoder, the decoder runs it backwards
type Plan struct {
	Stages         int
	Channels       []int // len Stages+1, starts at InputChannels
	OutputPaddings []int // Decoder order, one per transposed convolution after the first
	InvConvStart   int   // Spatial size entering the decoder convolutions
	FC             []int // Fully connected widths, flattened size first, LatentDim last
}

func (p SizingParams) Validate() error {
	switch {
	case p.Size <= 0:
		return types.ContractViolation("size must be positive, have %d", p.Size)
	case p.Stride <= 1:
		return types.ContractViolation("stride must be greater than one, have %d", p.Stride)
	case p.LatentDim <= 0:
		return types.ContractViolation("latent dimension must be positive, have %d", p.LatentDim)
	case p.NumCurves <= 0:
		return types.ContractViolation("curve count must be positive, have %d", p.NumCurves)
	case p.InputChannels <= 0:
		return types.ContractViolation("input channels must be positive, have %d", p.InputChannels)
	case p.ChannelGrowth <= 1:
		return types.ContractViolation("channel growth must be greater than one, have %d", p.ChannelGrowth)
	case p.FinalChannels <= 0:
		return types.ContractViolation("final channels must be positive, have %d", p.FinalChannels)
	}
	return nil
}

/*
FindSizes lays out the stages needed to bring Size points down to LatentDim values.

	Convolution stages shrink the size as size/Stride + 1 while size*FinalChannels > FlattenThreshold, the
	channel count grows by ChannelGrowth per stage and is pinned at FinalChannels once the next
	growth would pass it. Each stage records size%Stride, the output padding a transposed convolution
	needs to restore the size exactly. The flattened convolution output is then divided by Stride
	while size/Stride^1.5 > LatentDim, the last width being LatentDim.
*/
func FindSizes(p SizingParams) (plan *Plan, err error) {
	if err = p.Validate(); err != nil {
		return
	}
	var (
		size     = p.Size
		ch       = p.InputChannels
		channels = []int{ch}
		paddings = []int{size % p.Stride}
	)
	for size*p.FinalChannels > FlattenThreshold {
		next := size/p.Stride + 1
		if next >= size {
			err = types.ContractViolation("size %d does not shrink with stride %d, %d channels stay above %d",
				size, p.Stride, p.FinalChannels, FlattenThreshold)
			return
		}
		size = next
		if p.FinalChannels >= ch*p.ChannelGrowth {
			ch *= p.ChannelGrowth
			channels = append(channels, ch)
		} else {
			channels = append(channels, p.FinalChannels)
		}
		paddings = append(paddings, size%p.Stride)
	}
	plan = &Plan{
		Stages:       len(channels) - 1,
		Channels:     channels,
		InvConvStart: size,
	}
	size *= p.NumCurves * p.FinalChannels
	if size < p.LatentDim {
		plan, err = nil, types.ContractViolation("flattened size %d is smaller than the latent dimension %d",
			size, p.LatentDim)
		return
	}
	plan.FC = []int{size}
	div := math.Pow(float64(p.Stride), 1.5)
	for math.Floor(float64(size)/div) > float64(p.LatentDim) {
		size /= p.Stride
		plan.FC = append(plan.FC, size)
	}
	plan.FC = append(plan.FC, p.LatentDim)
	// Decoder order, the innermost stage needs no correction
	plan.OutputPaddings = make([]int, 0, len(paddings)-1)
	for i := len(paddings) - 2; i >= 0; i-- {
		plan.OutputPaddings = append(plan.OutputPaddings, paddings[i])
	}
	return
}

func (plan *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Convolution stages                = %d\n", plan.Stages)
	fmt.Fprintf(&b, "Channels                          = %v\n", plan.Channels)
	fmt.Fprintf(&b, "Decoder output paddings           = %v\n", plan.OutputPaddings)
	fmt.Fprintf(&b, "Decoder starting size             = %d\n", plan.InvConvStart)
	fmt.Fprintf(&b, "Fully connected widths            = %v\n", plan.FC)
	return b.String()
}
