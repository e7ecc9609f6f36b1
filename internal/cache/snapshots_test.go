package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilClientIsInert(t *testing.T) {
	s := NewSnapshots(nil, 0, nil)
	ctx := context.Background()

	s.Save(ctx, "ROOM", []byte(`{"life":40}`))
	doc, ok := s.Load(ctx, "ROOM")
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestSnapshotKeyPerRoom(t *testing.T) {
	assert.Equal(t, "room:snapshot:XYZQ", snapshotKey("XYZQ"))
	assert.NotEqual(t, snapshotKey("A"), snapshotKey("B"))
}
