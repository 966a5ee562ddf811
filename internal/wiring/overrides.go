package wiring

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

// readOverrides parses a `.chariot-overrides` file in configDir, per
// spec.md §6: one `<source-name>: <local-path>` pair per line. A missing
// file is not an error — overrides are optional.
func readOverrides(configDir string) (map[string]string, error) {
	path := filepath.Join(configDir, ".chariot-overrides")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.Wrap(err, "open overrides file")
	}
	defer f.Close()

	overrides := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, localPath, ok := strings.Cut(line, ":")
		if !ok {
			return nil, zerr.With(ErrMalformedOverride, "line", line)
		}
		overrides[strings.TrimSpace(name)] = strings.TrimSpace(localPath)
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(err, "read overrides file")
	}
	return overrides, nil
}
