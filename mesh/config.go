package mesh

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config controls the mesh backend's network stub. It is loaded from the
// TOML file named by the init command's config_path parameter; individual
// init options override file values.
type Config struct {
	// GroupID scopes auto-interface peer discovery to one logical mesh.
	GroupID string `toml:"group_id"`
	// SharedKey gates membership of a private mesh. Empty means open.
	SharedKey string `toml:"shared_key"`
	// EnableAutoInterface toggles local network auto-discovery.
	EnableAutoInterface bool `toml:"enable_auto_interface"`
	// StoragePath is the directory holding identities and the message store.
	StoragePath string `toml:"storage_path"`
	// AppName namespaces destinations created without an explicit app name.
	AppName string `toml:"app_name"`
}

// DefaultConfig returns the baseline configuration used when init is called
// without a config file.
func DefaultConfig() Config {
	return Config{
		GroupID:             "ronin-mesh",
		EnableAutoInterface: true,
		StoragePath:         filepath.Join(os.TempDir(), "ronin-mesh"),
		AppName:             "ronin",
	}
}

// LoadConfig reads a TOML config file, filling unset fields from defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load mesh config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load mesh config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// applyOptions merges init command options over the config. Unknown options
// are rejected so typos surface as errors instead of silent defaults.
func (c *Config) applyOptions(options map[string]any) error {
	for key, value := range options {
		switch key {
		case "group_id":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("option group_id: expected string, got %T", value)
			}
			c.GroupID = s
		case "shared_key":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("option shared_key: expected string, got %T", value)
			}
			c.SharedKey = s
		case "enable_auto_interface":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("option enable_auto_interface: expected boolean, got %T", value)
			}
			c.EnableAutoInterface = b
		case "storage_path":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("option storage_path: expected string, got %T", value)
			}
			c.StoragePath = s
		default:
			return fmt.Errorf("unknown init option: %s", key)
		}
	}
	return nil
}
