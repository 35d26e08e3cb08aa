// Package testenv prepares the process environment for integration tests.
package testenv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const envFile = ".env.test"

// ErrEnvFileNotFound is returned when no .env.test exists in the working
// directory or any of its parents.
var ErrEnvFileNotFound = errors.New("env file not found: " + envFile)

// Load finds the nearest .env.test walking up from the working directory and
// applies it over the current environment.
func Load() error {
	path, err := findUp(envFile)
	if err != nil {
		return err
	}
	return LoadFile(path)
}

func LoadFile(path string) error {
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func findUp(filename string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	for {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrEnvFileNotFound
		}
		dir = parent
	}
}
