package config

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	exportLine = regexp.MustCompile(`^\s*export\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)\s*$`)
	assignLine = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)\s*$`)
)

// LoadEnv loads simple shell-style env files into the process environment.
// Lines look like `KEY=value` or `export KEY=value`; values may be bare,
// single-quoted, or double-quoted. Missing files are skipped silently so
// credentials stay optional.
func LoadEnv(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		loadEnvFile(file)
		file.Close()
	}
}

func loadEnvFile(file *os.File) {
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var key, value string
		if m := exportLine.FindStringSubmatch(line); m != nil {
			key, value = m[1], m[2]
		} else if m := assignLine.FindStringSubmatch(line); m != nil {
			key, value = m[1], m[2]
		} else {
			continue
		}

		os.Setenv(key, unquote(strings.TrimSpace(value)))
	}
}

func unquote(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		inner := value[1 : len(value)-1]
		inner = strings.ReplaceAll(inner, `\\`, `\`)
		return strings.ReplaceAll(inner, `\"`, `"`)
	}
	if len(value) >= 2 && strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
		return value[1 : len(value)-1]
	}
	return value
}

// LoadDefaultEnv loads MOCKVIEW_ENV, ~/.mockview.env, and ./.env in that
// order, when present.
func LoadDefaultEnv() {
	if path := strings.TrimSpace(os.Getenv("MOCKVIEW_ENV")); path != "" {
		LoadEnv(path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		LoadEnv(filepath.Join(home, ".mockview.env"))
	}
	LoadEnv(".env")
}
