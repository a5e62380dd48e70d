package sim

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sceneFixture(t *testing.T) *Store {
	t.Helper()
	s := NewStore(8)
	for k := 0; k < 5; k++ {
		_, err := s.AddCell(CellParams{
			Position:        mgl64.Vec3{float64(3 * k), 0.5, -1},
			Velocity:        mgl64.Vec3{0.1, 0, float64(k)},
			AngularVelocity: mgl64.Vec3{0, 0.2, 0},
			Orientation:     mgl64.QuatRotate(0.3*float64(k), mgl64.Vec3{0, 1, 0}),
			Mass:            1 + float64(k),
			Age:             0.25 * float64(k),
			ModeIndex:       k % 2,
			CellType:        1,
			Color:           mgl64.Vec3{0.1, 0.2, 0.3},
		})
		require.NoError(t, err)
	}
	for k := 0; k < 4; k++ {
		bondAlongAxis(t, s, k, k+1)
	}
	require.NoError(t, s.RemoveConnection(1))
	return s
}

func TestScene_RoundTrip_PreservesStore(t *testing.T) {
	s := sceneFixture(t)
	var buf bytes.Buffer
	require.NoError(t, SaveScene(&buf, s))

	loaded, err := LoadScene(&buf)
	require.NoError(t, err)

	assert.Equal(t, s.CellCapacity(), loaded.CellCapacity())
	assert.Equal(t, s.CellCount(), loaded.CellCount())
	assert.Equal(t, s.ConnectionCount(), loaded.ConnectionCount())
	assert.Equal(t, s.ConnectionHighWater(), loaded.ConnectionHighWater())
	assert.Equal(t, s.connFree, loaded.connFree)
	n := s.CellCount()
	assert.Equal(t, s.Cells.Positions.X[:n], loaded.Cells.Positions.X[:n])
	assert.Equal(t, s.Cells.Orientations.W[:n], loaded.Cells.Orientations.W[:n])
	assert.Equal(t, s.Cells.Ages[:n], loaded.Cells.Ages[:n])
	assert.Equal(t, s.Cells.AdhesionSlots[:n], loaded.Cells.AdhesionSlots[:n])
	assert.Equal(t, s.Connections.Active[:4], loaded.Connections.Active[:4])
	assert.True(t, loaded.ValidateIntegrity().Clean())

	// The loaded store keeps allocating from the saved free list.
	c, err := loaded.AddConnection(0, 4, ConnectionParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}

func TestLoadScene_BadHeader(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, SaveScene(&good, sceneFixture(t)))

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
	}{
		{"empty", func(b []byte) []byte { return nil }},
		{"bad magic", func(b []byte) []byte { copy(b, "NOTSCENE"); return b }},
		{"future version", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[8:], 2); return b }},
		{"count above capacity", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[16:], 99); return b }},
		{"free count short of inactive slots", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[32:], 0); return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), good.Bytes()...))
			s, err := LoadScene(bytes.NewReader(data))
			assert.ErrorIs(t, err, ErrBadSceneHeader)
			assert.Nil(t, s)
		})
	}
}

func TestLoadScene_TruncatedPayload_ReturnsNoStore(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SaveScene(&buf, sceneFixture(t)))
	data := buf.Bytes()[:buf.Len()-10]

	s, err := LoadScene(bytes.NewReader(data))
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestLoadScene_CorruptSlots_FailsIntegrity(t *testing.T) {
	s := sceneFixture(t)
	s.Connections.AnchorA.Set(0, mgl64.Vec3{3, 0, 0})
	var buf bytes.Buffer
	require.NoError(t, SaveScene(&buf, s))

	loaded, err := LoadScene(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrity")
	assert.Nil(t, loaded)
}

func TestLoadScene_OversizedCapacity_RejectedBeforeAllocating(t *testing.T) {
	tests := []struct {
		name     string
		capacity uint32
		connCap  uint32
	}{
		// GIVEN a capacity far above the cap with a consistent connection capacity
		{"above cap", 1 << 27, (1 << 27) * MaxAdhesionsPerCell / 2},
		// GIVEN a capacity whose connection capacity wraps to zero in 32 bits
		{"wrapping product", 1 << 31, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := sceneHeader{Version: SceneVersion, CellCapacity: tt.capacity, ConnCapacity: tt.connCap}
			copy(h.Magic[:], SceneMagic)
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, h))

			// WHEN the header alone is loaded
			s, err := LoadScene(&buf)

			// THEN it is refused as a bad header with no store built
			assert.ErrorIs(t, err, ErrBadSceneHeader)
			assert.Contains(t, err.Error(), "cell capacity")
			assert.Nil(t, s)
		})
	}
}

func TestLoadScene_DuplicateFreeEntry_Rejected(t *testing.T) {
	// GIVEN a scene with two freed connections whose free list names one slot twice
	s := sceneFixture(t)
	require.NoError(t, s.RemoveConnection(2))
	require.Len(t, s.connFree, 2)
	s.connFree = []int32{1, 1}
	var buf bytes.Buffer
	require.NoError(t, SaveScene(&buf, s))

	// WHEN it is loaded
	loaded, err := LoadScene(&buf)

	// THEN the blob is refused, so no later AddConnection can hand out slot 1 twice
	assert.ErrorIs(t, err, ErrBadSceneHeader)
	assert.Contains(t, err.Error(), "free list entry 1")
	assert.Nil(t, loaded)
}

func TestLoadScene_FreeListMissingSlot_Rejected(t *testing.T) {
	// GIVEN a scene with two inactive connections but only one on the free list
	s := sceneFixture(t)
	require.NoError(t, s.RemoveConnection(2))
	s.connFree = s.connFree[:1]
	var buf bytes.Buffer
	require.NoError(t, SaveScene(&buf, s))

	// WHEN it is loaded
	loaded, err := LoadScene(&buf)

	// THEN the header counts disagree and nothing is returned
	assert.ErrorIs(t, err, ErrBadSceneHeader)
	assert.Contains(t, err.Error(), "free list holds 1 slots")
	assert.Nil(t, loaded)
}
