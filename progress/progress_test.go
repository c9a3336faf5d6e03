package progress

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	o := NewLogObserver(log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel}))
	var obs Observer = o
	obs.OnSnapshotRead(3, "mesh_3.vtu")
	assert.Zero(t, buf.Len(), "debug events are filtered at info level")
	obs.OnMeshAdapted(4)
	assert.Contains(t, buf.String(), "mesh adapted")
	assert.Contains(t, buf.String(), "snapshot=4")
	buf.Reset()
	obs.OnOrderingDone(100, 2, 1500*time.Millisecond, true)
	assert.Contains(t, buf.String(), "cached=true")
	{
		o.Logger.SetLevel(log.DebugLevel)
		buf.Reset()
		obs.OnSnapshotRead(3, "mesh_3.vtu")
		assert.Contains(t, buf.String(), "path=mesh_3.vtu")
	}
	assert.NotNil(t, NewLogObserver(nil).Logger)
	var _ Observer = Noop{}
}
