package loader

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeature struct {
	name    string
	enabled bool
	err     error
	loaded  bool
}

func (f *fakeFeature) Name() string    { return f.name }
func (f *fakeFeature) IsEnabled() bool { return f.enabled }
func (f *fakeFeature) Load(app fiber.Router) error {
	f.loaded = true
	return f.err
}

func TestManager_LoadAll(t *testing.T) {
	m := NewManager(nil)
	on := &fakeFeature{name: "project", enabled: true}
	off := &fakeFeature{name: "journal"}

	require.NoError(t, m.Register(on))
	require.NoError(t, m.Register(off))
	assert.Error(t, m.Register(&fakeFeature{name: "project"}))
	assert.Len(t, m.Features(), 2)

	require.NoError(t, m.LoadAll(fiber.New()))
	assert.True(t, on.loaded)
	assert.False(t, off.loaded)
}

func TestManager_LoadAllStopsOnError(t *testing.T) {
	m := NewManager(nil)
	broken := &fakeFeature{name: "broken", enabled: true, err: errors.New("no database")}
	after := &fakeFeature{name: "after", enabled: true}
	require.NoError(t, m.Register(broken))
	require.NoError(t, m.Register(after))

	err := m.LoadAll(fiber.New())
	assert.ErrorContains(t, err, "broken")
	assert.ErrorContains(t, err, "no database")
	assert.False(t, after.loaded)
}
