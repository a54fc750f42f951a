package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultUserID is used until a user identity is saved.
const DefaultUserID = "demo-user"

// Identity is the locally stored user record.
type Identity struct {
	ID string `json:"id"`
}

// LoadIdentity reads the identity file at path. A missing, unreadable or
// empty record yields DefaultUserID.
func LoadIdentity(path string) Identity {
	b, err := os.ReadFile(path)
	if err != nil {
		return Identity{ID: DefaultUserID}
	}
	var id Identity
	if err := json.Unmarshal(b, &id); err != nil || strings.TrimSpace(id.ID) == "" {
		return Identity{ID: DefaultUserID}
	}
	id.ID = strings.TrimSpace(id.ID)
	return id
}

// SaveIdentity writes id to path, creating parent directories.
func SaveIdentity(path string, id Identity) error {
	if strings.TrimSpace(id.ID) == "" {
		return errors.New("save identity: empty id")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("save identity: %w", err)
	}
	b, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// DefaultIdentityPath is the identity file under the user's config dir.
func DefaultIdentityPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "acerace-identity.json"
	}
	return filepath.Join(dir, "acerace", "identity.json")
}
