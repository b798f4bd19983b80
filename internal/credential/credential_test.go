package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zkr "github.com/zalando/go-keyring"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
)

func TestStorePrefersKeyring(t *testing.T) {
	zkr.MockInit()
	s := NewStore(map[string]browser.Credentials{
		PortalMenus: {Username: "from-config", Password: "x"},
	})
	require.True(t, s.keyring)

	c, err := s.Get(PortalMenus)
	require.NoError(t, err)
	assert.Equal(t, "from-config", c.Username)
	assert.Equal(t, "config", s.Source(PortalMenus))

	require.NoError(t, s.Set(PortalMenus, browser.Credentials{Username: "ops", Password: "p@ss"}))
	c, err = s.Func(PortalMenus)()
	require.NoError(t, err)
	assert.Equal(t, browser.Credentials{Username: "ops", Password: "p@ss"}, c)
	assert.Equal(t, "keyring", s.Source(PortalMenus))

	require.NoError(t, s.Delete(PortalMenus))
	require.NoError(t, s.Delete(PortalMenus))
	c, err = s.Get(PortalMenus)
	require.NoError(t, err)
	assert.Equal(t, "from-config", c.Username)
}

func TestStoreMissingCredentials(t *testing.T) {
	zkr.MockInit()
	s := NewStore(map[string]browser.Credentials{PortalLevels: {}})

	_, err := s.Get(PortalLevels)
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Equal(t, "", s.Source(PortalLevels))
	assert.Error(t, s.Set(PortalLevels, browser.Credentials{}))
}

func TestStoreWithoutKeyring(t *testing.T) {
	t.Setenv("PRICETOGGLE_KEYRING_DISABLED", "1")
	s := NewStore(map[string]browser.Credentials{PortalLevels: {Username: "env-user"}})

	assert.False(t, s.keyring)
	c, err := s.Get(PortalLevels)
	require.NoError(t, err)
	assert.Equal(t, "env-user", c.Username)
	assert.Error(t, s.Set(PortalLevels, browser.Credentials{Username: "u"}))
	assert.NoError(t, s.Delete(PortalLevels))
}
