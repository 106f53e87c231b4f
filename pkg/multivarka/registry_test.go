package multivarka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDriver_ResolvesByScheme(t *testing.T) {
	d := &recordingDriver{}
	RegisterDriver("RegistryTest", d)

	got, err := lookupDriver("registrytest://host/db")
	require.NoError(t, err)
	assert.Same(t, d, got)
	assert.Contains(t, Drivers(), "registrytest")

	_, err = Server("registrytest://host/db").Collection("c").Find(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"connect", "collection", "find", "close"}, d.Calls())
}

func TestRegisterDriver_ResolvedAtTerminalAction(t *testing.T) {
	step := Server("latereg://host/db").Collection("c")

	d := &recordingDriver{}
	RegisterDriver("latereg", d)

	_, err := step.Find(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"connect", "collection", "find", "close"}, d.Calls())
}

func TestRegisterDriver_FirstWins(t *testing.T) {
	first := &recordingDriver{}
	second := &recordingDriver{}
	RegisterDriver("firstwins", first)
	RegisterDriver("firstwins", second)
	RegisterDriver("firstwins-nil", nil)

	got, err := lookupDriver("firstwins://x")
	require.NoError(t, err)
	assert.Same(t, first, got)

	_, err = lookupDriver("firstwins-nil://x")
	assert.True(t, errors.Is(err, ErrNoDriver))
}

func TestLookupDriver_NoScheme(t *testing.T) {
	_, err := lookupDriver("localhost:27017")
	assert.ErrorIs(t, err, ErrNoDriver)
}

func TestWithDriver_OverridesRegistry(t *testing.T) {
	registered := &recordingDriver{}
	explicit := &recordingDriver{}
	RegisterDriver("overridetest", registered)

	_, err := Server("overridetest://x", WithDriver(explicit)).Collection("c").Find(context.Background())
	require.NoError(t, err)

	assert.Empty(t, registered.Calls())
	assert.Len(t, explicit.Calls(), 4)
}
