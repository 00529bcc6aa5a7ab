package feed

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"w3feed/internal/config"
)

// LoadPlayers resolves the tracked battle tags. A players file takes
// precedence over the inline list; blank lines and #-comments are skipped.
func LoadPlayers(cfg config.PlayersConfig) ([]string, error) {
	if strings.TrimSpace(cfg.File) != "" {
		return readPlayersFile(cfg.File)
	}

	var tags []string
	for _, t := range cfg.List {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("no players configured")
	}
	return tags, nil
}

func readPlayersFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open players file: %w", err)
	}
	defer f.Close()

	var tags []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tags = append(tags, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read players file: %w", err)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("players file %s is empty", path)
	}
	return tags, nil
}
