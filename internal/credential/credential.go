// Package credential stores portal logins in the OS keychain, falling back to
// the values from config or the environment.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	zkr "github.com/zalando/go-keyring"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
)

const serviceName = "pricetoggle"

// Portals with stored logins.
const (
	PortalMenus  = "menus"
	PortalLevels = "levels"
)

// ErrNoCredentials means neither the keychain nor config has a login.
var ErrNoCredentials = errors.New("no credentials configured")

type stored struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store resolves credentials per portal.
type Store struct {
	fallback map[string]browser.Credentials
	keyring  bool
}

// NewStore returns a store that prefers the keychain when it is usable and
// otherwise uses fallback, usually the config file values.
func NewStore(fallback map[string]browser.Credentials) *Store {
	return &Store{fallback: fallback, keyring: Available()}
}

// Get returns the credentials for portal.
func (s *Store) Get(portal string) (browser.Credentials, error) {
	if s.keyring {
		c, err := s.fromKeyring(portal)
		switch {
		case err == nil:
			return c, nil
		case !errors.Is(err, zkr.ErrNotFound):
			return browser.Credentials{}, err
		}
	}
	if c, ok := s.fallback[portal]; ok && c.Username != "" {
		return c, nil
	}
	return browser.Credentials{}, fmt.Errorf("%w for %s", ErrNoCredentials, portal)
}

// Func binds Get to portal for use as an automation credential source.
func (s *Store) Func(portal string) func() (browser.Credentials, error) {
	return func() (browser.Credentials, error) {
		return s.Get(portal)
	}
}

// Source reports where Get would find portal's login: "keyring", "config"
// or "" when there is none.
func (s *Store) Source(portal string) string {
	if s.keyring {
		if _, err := s.fromKeyring(portal); err == nil {
			return "keyring"
		}
	}
	if c, ok := s.fallback[portal]; ok && c.Username != "" {
		return "config"
	}
	return ""
}

// Set saves portal's login in the keychain.
func (s *Store) Set(portal string, c browser.Credentials) error {
	if !s.keyring {
		return errors.New("OS keychain is not available")
	}
	if strings.TrimSpace(c.Username) == "" {
		return errors.New("username is required")
	}
	b, err := json.Marshal(stored{Username: c.Username, Password: c.Password})
	if err != nil {
		return err
	}
	if err := zkr.Set(serviceName, portal, string(b)); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// Delete removes portal's login from the keychain. Deleting a missing entry
// is not an error.
func (s *Store) Delete(portal string) error {
	if !s.keyring {
		return nil
	}
	if err := zkr.Delete(serviceName, portal); err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

func (s *Store) fromKeyring(portal string) (browser.Credentials, error) {
	raw, err := zkr.Get(serviceName, portal)
	if err != nil {
		if errors.Is(err, zkr.ErrNotFound) {
			return browser.Credentials{}, err
		}
		return browser.Credentials{}, fmt.Errorf("keychain get: %w", err)
	}
	var st stored
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return browser.Credentials{}, fmt.Errorf("keychain entry for %s: %w", portal, err)
	}
	return browser.Credentials{Username: st.Username, Password: st.Password}, nil
}

// Available returns true if the OS keychain is functional.
// Returns false if PRICETOGGLE_KEYRING_DISABLED=1 is set (headless/CI/Docker).
// Otherwise probes the keychain with a test write/read/delete cycle.
func Available() bool {
	if os.Getenv("PRICETOGGLE_KEYRING_DISABLED") == "1" {
		return false
	}
	testService := serviceName + "-keyring-probe"
	testAccount := "probe"
	if err := zkr.Set(testService, testAccount, "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, testAccount)
	return true
}
