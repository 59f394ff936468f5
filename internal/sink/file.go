package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chatlytics/logmonitor/pkg/types"
)

// filenameLayout yields names that sort in report order.
const filenameLayout = "20060102_150405.000"

// FileSink writes each report as a human-readable text file in a local
// reports directory.
type FileSink struct {
	dir string
	now func() time.Time
}

// NewFileSink creates the reports directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &FileSink{dir: dir, now: time.Now}, nil
}

// Dir returns the reports directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// Write formats the report and persists it, returning the file path.
func (s *FileSink) Write(report *types.ErrorReport) (string, error) {
	stamp := strings.ReplaceAll(report.Timestamp.Format(filenameLayout), ".", "_")
	path := filepath.Join(s.dir, fmt.Sprintf("error_report_%s.txt", stamp))

	// Reports created in the same millisecond get a numeric suffix.
	for i := 1; ; i++ {
		if _, err := os.Stat(path); err != nil {
			break
		}
		path = filepath.Join(s.dir, fmt.Sprintf("error_report_%s_%d.txt", stamp, i))
	}

	if err := os.WriteFile(path, []byte(s.format(report)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// format renders the fixed report template.
func (s *FileSink) format(report *types.ErrorReport) string {
	var b strings.Builder

	b.WriteString("ERROR REPORT\n")
	b.WriteString("============\n")
	fmt.Fprintf(&b, "Time:     %s\n", report.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Category: %s\n", report.Category)
	fmt.Fprintf(&b, "Priority: %s\n", report.Priority)
	fmt.Fprintf(&b, "Source:   %s\n", report.SourceFile)
	b.WriteString("\nError:\n")
	b.WriteString(report.PrimaryMessage)
	b.WriteString("\n\nContext:\n")
	for _, line := range report.ContextLines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("\nSuggested checks:\n")
	b.WriteString("- Inspect surrounding log output for related failures\n")
	b.WriteString("- Verify all dependencies are installed and reachable\n")
	b.WriteString("- Check database connectivity\n")
	b.WriteString("- Check the bot token and access permissions\n")
	fmt.Fprintf(&b, "\nReport created: %s\n", s.now().Format("2006-01-02 15:04:05"))

	return b.String()
}
