package readfiles

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/gosfc/progress"
	"github.com/notargets/gosfc/types"
)

// DegenerateRange is the extent below which a trailing coordinate or field axis is dropped
const DegenerateRange = 1.e-6

// SeriesFiles is a sequence of snapshots named <Prefix><index>.<Format>
type SeriesFiles struct {
	Prefix  string
	Format  string
	Paths   []string
	Indices []int
}

func (sf *SeriesFiles) Len() int { return len(sf.Paths) }

/*
DiscoverSeries finds the snapshot files starting with dataPath.

	The prefix is everything up to and including the last underscore of the first matching file name,
	"run/flow_past_3.vtu" has prefix "run/flow_past_". Files with another prefix or a non numeric
	suffix are ignored, the rest are sorted by their index.
*/
func DiscoverSeries(dataPath, format string) (sf *SeriesFiles, err error) {
	format = strings.TrimPrefix(format, ".")
	if format != "vtu" {
		err = fmt.Errorf("unsupported file format %q, only vtu snapshots can be read", format)
		return
	}
	var (
		matches []string
		ext     = "." + format
	)
	if matches, err = filepath.Glob(dataPath + "*"); err != nil {
		return
	}
	sort.Strings(matches)
	var candidates []string
	for _, m := range matches {
		if filepath.Ext(m) == ext {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		err = fmt.Errorf("no %s files match %s*", ext, dataPath)
		return
	}
	sf = &SeriesFiles{Format: format}
	for _, c := range candidates {
		prefix, index, ok := splitSnapshotName(c, ext)
		if !ok {
			continue
		}
		if sf.Prefix == "" {
			sf.Prefix = prefix
		}
		if prefix != sf.Prefix {
			continue
		}
		sf.Paths = append(sf.Paths, c)
		sf.Indices = append(sf.Indices, index)
	}
	if sf.Len() == 0 {
		sf, err = nil, fmt.Errorf("no file matching %s* is named <prefix>_<index>%s", dataPath, ext)
		return
	}
	sort.Sort(byIndex{sf})
	return
}

func splitSnapshotName(path, ext string) (prefix string, index int, ok bool) {
	base := strings.TrimSuffix(path, ext)
	ind := strings.LastIndex(base, "_")
	if ind < 0 {
		return
	}
	var err error
	if index, err = strconv.Atoi(base[ind+1:]); err != nil || index < 0 {
		return
	}
	return base[:ind+1], index, true
}

type byIndex struct{ sf *SeriesFiles }

func (b byIndex) Len() int           { return len(b.sf.Paths) }
func (b byIndex) Less(i, j int) bool { return b.sf.Indices[i] < b.sf.Indices[j] }
func (b byIndex) Swap(i, j int) {
	b.sf.Paths[i], b.sf.Paths[j] = b.sf.Paths[j], b.sf.Paths[i]
	b.sf.Indices[i], b.sf.Indices[j] = b.sf.Indices[j], b.sf.Indices[i]
}

// Segment is a run of snapshots [Start, End) sharing the same point coordinates
type Segment struct {
	Start, End int
	Coords     types.PointSet
}

type Series struct {
	Files      *SeriesFiles
	Field      string
	Segments   []Segment
	Components int
	Data       [][]float64 // [snapshot][npoints*Components]
}

func (s *Series) NumPoints() int { return s.Segments[0].Coords.N() }

// Snapshot returns the field values of snapshot i as one row per component: [component][npoints]
func (s *Series) Snapshot(i int) (fields [][]float64) {
	var (
		nc = s.Components
		np = s.NumPoints()
	)
	fields = make([][]float64, nc)
	for c := range fields {
		fields[c] = make([]float64, np)
		for p := 0; p < np; p++ {
			fields[c][p] = s.Data[i][p*nc+c]
		}
	}
	return
}

type ReadOptions struct {
	Parallelism int // Files read at once, < 1 means one
	Observer    progress.Observer
}

/*
ReadSeries reads every snapshot of the series and extracts one point field.

	All snapshots must have the same number of points. When the coordinates change the mesh has been
	adapted and a new Segment starts. Degenerate trailing axes are dropped, see TrimDegenerate.
*/
func ReadSeries(ctx context.Context, sf *SeriesFiles, field string, opts ReadOptions) (s *Series, err error) {
	var (
		obs   = opts.Observer
		start = time.Now()
		n     = sf.Len()
		files = make([]*VTUFile, n)
	)
	if obs == nil {
		obs = progress.Noop{}
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if n == 0 {
		err = types.ContractViolation("empty snapshot series")
		return
	}
	obs.OnSeriesStart(n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, path := range sf.Paths {
		g.Go(func() (err error) {
			if err = gctx.Err(); err != nil {
				return
			}
			if files[i], err = ReadVTU(path); err == nil {
				obs.OnSnapshotRead(i, path)
			}
			return
		})
	}
	if err = g.Wait(); err != nil {
		return
	}
	s = &Series{
		Files: sf,
		Field: field,
		Data:  make([][]float64, n),
	}
	for i, vf := range files {
		var da *DataArray
		if da, err = vf.Field(field); err != nil {
			s = nil
			return
		}
		if i == 0 {
			s.Components = da.NumComponents
		}
		switch {
		case vf.NumPoints() != files[0].NumPoints():
			s, err = nil, types.ContractViolation("snapshot %s has %d points, %s has %d",
				vf.Path, vf.NumPoints(), files[0].Path, files[0].NumPoints())
			return
		case da.NumComponents != s.Components:
			s, err = nil, types.ContractViolation("field %q has %d components in %s and %d in %s",
				field, da.NumComponents, vf.Path, s.Components, files[0].Path)
			return
		}
		pts := types.PointSet{Coords: vf.Points}
		if i == 0 || !pts.Equal(s.Segments[len(s.Segments)-1].Coords) {
			if i > 0 {
				obs.OnMeshAdapted(i)
			}
			s.Segments = append(s.Segments, Segment{Start: i, Coords: pts})
		}
		s.Segments[len(s.Segments)-1].End = i + 1
		s.Data[i] = da.Values
	}
	TrimDegenerate(s)
	obs.OnSeriesDone(n, time.Since(start))
	return
}

// TrimDegenerate drops the trailing coordinate axis when it is flat over every segment, and the
// trailing field component of a multi component field when it is constant over every snapshot.
func TrimDegenerate(s *Series) (coordsTrimmed, fieldTrimmed bool) {
	var (
		dim = s.Segments[0].Coords.Dim()
	)
	if dim > 2 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, seg := range s.Segments {
			min, max := seg.Coords.Range(dim - 1)
			lo, hi = math.Min(lo, min), math.Max(hi, max)
		}
		if hi-lo < DegenerateRange {
			for i := range s.Segments {
				s.Segments[i].Coords = s.Segments[i].Coords.DropLastAxis()
			}
			coordsTrimmed = true
		}
	}
	if nc := s.Components; nc > 1 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, data := range s.Data {
			for p := nc - 1; p < len(data); p += nc {
				lo, hi = math.Min(lo, data[p]), math.Max(hi, data[p])
			}
		}
		if hi-lo < DegenerateRange {
			for i, data := range s.Data {
				trimmed := make([]float64, 0, len(data)/nc*(nc-1))
				for p := 0; p < len(data); p += nc {
					trimmed = append(trimmed, data[p:p+nc-1]...)
				}
				s.Data[i] = trimmed
			}
			s.Components = nc - 1
			fieldTrimmed = true
		}
	}
	return
}
