package InputParameters

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ghodss/yaml"

	"github.com/notargets/gosfc/cache"
	"github.com/notargets/gosfc/connectivity"
	"github.com/notargets/gosfc/layers"
	"github.com/notargets/gosfc/sfc"
	"github.com/notargets/gosfc/types"
)

// Parameters obtained from the YAML input file
type SFCParameters struct {
	Title         string          `yaml:"Title"`
	DataPath      string          `yaml:"DataPath"`   // Snapshot prefix, "run/flow_" reads run/flow_0.vtu, run/flow_1.vtu...
	FileFormat    string          `yaml:"FileFormat"` // vtu
	Field         string          `yaml:"Field"`
	MeshFile      string          `yaml:"MeshFile"` // Optional SU2 mesh, its element edges replace the neighbor search
	NumCurves     int             `yaml:"NumCurves"`
	StartingNode  int             `yaml:"StartingNode"` // 0 lets the generator choose, k > 0 starts at point k-1
	GraphTrim     int             `yaml:"GraphTrim"`
	Neighbors     int             `yaml:"Neighbors"`
	Stride        int             `yaml:"Stride"`
	LatentDim     int             `yaml:"LatentDim"`
	InputChannels int             `yaml:"InputChannels"` // 0 uses the component count of Field
	ChannelGrowth int             `yaml:"ChannelGrowth"`
	FinalChannels int             `yaml:"FinalChannels"`
	Parallelism   int             `yaml:"Parallelism"` // 0 uses every CPU
	Cache         CacheParameters `yaml:"Cache"`
}

type CacheParameters struct {
	Kind        string `yaml:"Kind"` // none, memory, file or redis
	Dir         string `yaml:"Dir"`
	RedisAddr   string `yaml:"RedisAddr"`
	Compression string `yaml:"Compression"`
	TTL         string `yaml:"TTL"` // Go duration, empty never expires
}

// NewSFCParameters returns the defaults, Parse overlays what the input file sets
func NewSFCParameters() *SFCParameters {
	return &SFCParameters{
		FileFormat:    "vtu",
		NumCurves:     2,
		GraphTrim:     sfc.DefaultGraphTrim,
		Neighbors:     connectivity.DefaultNeighbors,
		Stride:        2,
		LatentDim:     32,
		InputChannels: 0,
		ChannelGrowth: 2,
		FinalChannels: 64,
		Cache: CacheParameters{
			Kind:        "none",
			Compression: "zstd",
		},
	}
}

func (ip *SFCParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// ReadFile overlays the YAML file on ip and validates the result
func (ip *SFCParameters) ReadFile(fileName string) (err error) {
	var (
		data []byte
	)
	if data, err = os.ReadFile(fileName); err != nil {
		return fmt.Errorf("unable to read input parameters file %s: %w", fileName, err)
	}
	if err = ip.Parse(data); err != nil {
		return fmt.Errorf("unable to parse %s: %w", fileName, err)
	}
	if err = ip.Validate(); err != nil {
		return fmt.Errorf("%s: %w", fileName, err)
	}
	return
}

func (ip *SFCParameters) Validate() (err error) {
	positive := []struct {
		name string
		val  int
		min  int
	}{
		{"NumCurves", ip.NumCurves, 1},
		{"Neighbors", ip.Neighbors, 1},
		{"Stride", ip.Stride, 2},
		{"LatentDim", ip.LatentDim, 1},
		{"InputChannels", ip.InputChannels, 0},
		{"ChannelGrowth", ip.ChannelGrowth, 2},
		{"FinalChannels", ip.FinalChannels, 1},
		{"StartingNode", ip.StartingNode, 0},
		{"Parallelism", ip.Parallelism, 0},
	}
	for _, p := range positive {
		if p.val < p.min {
			return types.ContractViolation("%s must be at least %d, have %d", p.name, p.min, p.val)
		}
	}
	switch {
	case ip.DataPath == "":
		return types.ContractViolation("DataPath is required")
	case ip.Field == "":
		return types.ContractViolation("Field is required")
	case strings.TrimPrefix(ip.FileFormat, ".") != "vtu":
		return types.ContractViolation("unsupported FileFormat %q, only vtu", ip.FileFormat)
	}
	if _, err = ip.CacheTTL(); err != nil {
		return
	}
	if _, err = cache.ParseCompression(ip.Cache.Compression); err != nil {
		return types.ContractViolation("%v", err)
	}
	switch strings.ToLower(ip.Cache.Kind) {
	case "", "none", "memory":
	case "file":
		if ip.Cache.Dir == "" {
			return types.ContractViolation("file cache needs Cache.Dir")
		}
	case "redis":
		if ip.Cache.RedisAddr == "" {
			return types.ContractViolation("redis cache needs Cache.RedisAddr")
		}
	default:
		return types.ContractViolation("unknown cache kind %q, use none, memory, file or redis", ip.Cache.Kind)
	}
	return
}

func (ip *SFCParameters) CacheTTL() (ttl time.Duration, err error) {
	if ip.Cache.TTL == "" {
		return
	}
	if ttl, err = time.ParseDuration(ip.Cache.TTL); err != nil {
		err = types.ContractViolation("bad Cache.TTL %q: %v", ip.Cache.TTL, err)
	}
	return
}

func (ip *SFCParameters) Generator() *sfc.DomainDecomposition {
	return &sfc.DomainDecomposition{
		StartingNode: ip.StartingNode,
		GraphTrim:    ip.GraphTrim,
	}
}

// SizingParams sizes the network for meshes of n points
// SizingParams sizes the network for n points of a field with the given number of components
func (ip *SFCParameters) SizingParams(n, components int) layers.SizingParams {
	channels := ip.InputChannels
	if channels == 0 {
		channels = components
	}
	return layers.SizingParams{
		Size:          n,
		Stride:        ip.Stride,
		LatentDim:     ip.LatentDim,
		NumCurves:     ip.NumCurves,
		InputChannels: channels,
		ChannelGrowth: ip.ChannelGrowth,
		FinalChannels: ip.FinalChannels,
	}
}

func (ip *SFCParameters) Print() {
	ip.Fprint(os.Stdout)
}

func (ip *SFCParameters) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%s]\t\t= Data Path\n", ip.DataPath)
	fmt.Fprintf(w, "[%s]\t\t\t= Field\n", ip.Field)
	if ip.MeshFile != "" {
		fmt.Fprintf(w, "[%s]\t\t= Mesh File\n", ip.MeshFile)
	}
	fmt.Fprintf(w, "[%d]\t\t\t\t= Number of Curves\n", ip.NumCurves)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Starting Node\n", ip.StartingNode)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Graph Trim\n", ip.GraphTrim)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Neighbors\n", ip.Neighbors)
	fmt.Fprintf(w, "[%d,%d,%d,%d,%d]\t\t= Stride, Latent, Input/Growth/Final Channels\n",
		ip.Stride, ip.LatentDim, ip.InputChannels, ip.ChannelGrowth, ip.FinalChannels)
	fmt.Fprintf(w, "[%s:%s]\t\t= Cache\n", ip.Cache.Kind, ip.Cache.Compression)
}
