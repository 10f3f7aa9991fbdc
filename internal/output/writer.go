package output

import (
	"fmt"
	"os"
	"path/filepath"

	"depthmeter-go/internal/types"
)

// WriteRun writes one completed run and returns the file name.
func WriteRun(outputDir string, runTimestamp string, result types.Result) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	filename := filepath.Join(outputDir, fmt.Sprintf("%s_run_%03d.txt", runTimestamp, result.Sequence))
	f, err := os.Create(filename)
	if err != nil {
		return "", err
	}

	s := result.Summary
	_, _ = fmt.Fprintf(f, "# finished %s\n", result.Finished)
	_, _ = fmt.Fprintf(f, "# depth %.2f cm, range across %d readings %.2f - %.2f cm\n", s.Mean, s.Count, s.Min, s.Max)
	_, _ = fmt.Fprintln(f, "reading, cm")
	for i, v := range s.Samples {
		_, _ = fmt.Fprintf(f, "%d, %.2f\n", i+1, v)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return filename, nil
}
