package mesh

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Identity is a node's addressable identity on the mesh. The stub derives
// the 16-byte hash from a random UUID instead of real keypair material.
type Identity struct {
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// NewIdentity generates a fresh identity.
func NewIdentity() *Identity {
	id := uuid.New()
	return &Identity{
		Hash:      hex.EncodeToString(id[:]),
		CreatedAt: time.Now().UTC(),
	}
}

// LoadIdentity reads an identity previously written by Save.
func LoadIdentity(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load identity %s: %w", path, err)
	}
	var ident Identity
	if err := json.Unmarshal(data, &ident); err != nil {
		return nil, fmt.Errorf("load identity %s: %w", path, err)
	}
	if ident.Hash == "" {
		return nil, fmt.Errorf("load identity %s: missing hash", path)
	}
	return &ident, nil
}

// Save writes the identity to path, creating parent directories as needed.
func (i *Identity) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("save identity %s: %w", path, err)
	}
	data, err := json.Marshal(i)
	if err != nil {
		return fmt.Errorf("save identity %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save identity %s: %w", path, err)
	}
	return nil
}

// Destination is an addressable endpoint announced under an identity.
type Destination struct {
	Hash    string   `json:"hash"`
	AppName string   `json:"app_name"`
	Aspects []string `json:"aspects"`
}

// newDestination derives a stub destination hash for an identity and aspect
// set. Real mesh stacks hash the identity key with the aspect path; the stub
// only needs stable-length, unique-looking hashes.
func newDestination(appName string, aspects []string) *Destination {
	id := uuid.New()
	return &Destination{
		Hash:    hex.EncodeToString(id[:]),
		AppName: appName,
		Aspects: aspects,
	}
}
