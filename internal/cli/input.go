package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/storyweave/pkg/validate"
)

// readInput reads a story document from path, or from stdin for "-".
// One byte past the import cap is read so oversized input is reported by
// validation rather than silently truncated.
func (c *CLI) readInput(path string) ([]byte, error) {
	var r io.Reader
	if path == "-" {
		r = c.in
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, validate.MaxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// outputPath returns explicit, or input with its extension replaced by
// suffix. Stdin input writes next to the working directory as "story".
func outputPath(explicit, input, suffix string) string {
	if explicit != "" {
		return explicit
	}
	if input == "-" {
		return "story" + suffix
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

func writeFile(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
