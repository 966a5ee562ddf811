package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// Name used for directory naming.
	appName = "chariot"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// DefaultCacheRoot returns the cache root chariot uses when neither
// `--cache` nor `$CHARIOT_CACHE` is set.
//
//	Linux:   ~/.cache/chariot
//	macOS:   ~/Library/Caches/chariot
func DefaultCacheRoot() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// DefaultConfigPath returns the DSL entry file chariot loads when
// `--config` is not given: `chariot.chariot` in the current directory.
func DefaultConfigPath() string {
	return "chariot.chariot"
}
