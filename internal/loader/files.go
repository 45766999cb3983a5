package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateFile checks that path names a readable table file in a supported
// format. Office lock files ("~$name.xlsx") are rejected.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file %s does not exist: %w", path, err)
		}
		return fmt.Errorf("failed to stat input file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("%s is a temporary Excel file", path)
	}
	if _, err := DetectFormat(path); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("input file %s is not readable: %w", path, err)
	}
	return f.Close()
}
