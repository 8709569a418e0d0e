package auth

import (
	"os"
	"time"
)

const (
	EnvCookie    = "ZHCRAWLER_COOKIE"
	EnvUserAgent = "ZHCRAWLER_USER_AGENT"
)

// EnvironmentStore is a read-only CredentialStore over ZHCRAWLER_COOKIE and
// ZHCRAWLER_USER_AGENT. It answers for any profile name.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(profile *Profile) error {
	return ErrStoreUnavailable
}

// Retrieve builds a profile from the environment
func (e *EnvironmentStore) Retrieve(name string) (*Profile, error) {
	cookie := os.Getenv(EnvCookie)
	userAgent := os.Getenv(EnvUserAgent)

	if cookie == "" && userAgent == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = DefaultProfile
	}

	return &Profile{
		Name:         name,
		Cookie:       cookie,
		UserAgent:    userAgent,
		LastModified: time.Time{},
	}, nil
}

// List returns a single profile if the environment carries one
func (e *EnvironmentStore) List() ([]*Profile, error) {
	profile, err := e.Retrieve("env")
	if err != nil {
		return []*Profile{}, nil
	}
	return []*Profile{profile}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists reports whether the environment carries a profile
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvCookie) != "" || os.Getenv(EnvUserAgent) != ""
}
