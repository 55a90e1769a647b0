// Package dotenv reads a .env file into the process environment at startup.
package dotenv

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadFile reads KEY=VALUE lines from path and sets each as an environment
// variable unless one is already set. Blank lines and # comments are skipped,
// a leading "export " is tolerated, and single or double quotes around a value
// are stripped. A missing file is not an error.
func LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}

		val = strings.TrimSpace(val)
		if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set %s from %s: %w", key, path, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
