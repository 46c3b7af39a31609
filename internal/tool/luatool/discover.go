package luatool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/dshills/inkstorm/internal/logging"
)

// Discover loads every .lua script under the given directories into tool
// providers. The script's base name becomes the tool name; when the same
// name appears under several directories, the earliest directory wins.
// Unreadable directories and rejected scripts are skipped with a log line,
// so one bad script cannot block the rest.
func Discover(log *bolt.Logger, paths ...string) []*Provider {
	if log == nil {
		log = logging.Get()
	}

	var providers []*Provider
	seen := make(map[string]bool)

	for _, dir := range paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Debug().Str("dir", dir).Err(err).Msg("tool path skipped")
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ".lua")
			if seen[name] {
				log.Debug().Str("tool", name).Str("dir", dir).Msg("shadowed by earlier tool path")
				continue
			}

			p, err := NewProvider(name, filepath.Join(dir, entry.Name()))
			if err != nil {
				log.Warn().Str("tool", name).Err(err).Msg("tool script rejected")
				continue
			}
			seen[name] = true
			providers = append(providers, p)
			log.Debug().Str("tool", name).Str("kind", p.Kind().String()).Msg("tool script discovered")
		}
	}

	return providers
}
