// Package utils provides small platform utilities shared across narrata.
package utils

import (
	"os"
)

// GetHomeDir returns the user's home directory. No package in this
// repository calls it.
func GetHomeDir() (string, error) {
	return os.UserHomeDir()
}
