package types

import "time"

// Category classifies an interesting log line.
type Category string

const (
	CategoryCritical  Category = "Critical"
	CategoryException Category = "Exception"
	CategoryError     Category = "Error"
	CategoryUserError Category = "UserError"
	CategoryUnknown   Category = "Unknown"
)

// CategoryOrder lists interest categories from most to least severe. The
// matcher scans its patterns in this order, so a line matching both a
// Critical and an Error pattern is classified Critical.
var CategoryOrder = []Category{
	CategoryCritical,
	CategoryException,
	CategoryError,
	CategoryUserError,
}

// ParseCategory converts a configuration string to a Category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryCritical, CategoryException, CategoryError, CategoryUserError, CategoryUnknown:
		return Category(s), true
	}
	return CategoryUnknown, false
}

// Priority is the remediation priority attached to a report.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// MatchEvent is the classification outcome for a single log line.
type MatchEvent struct {
	Interesting bool     `json:"interesting"`
	Ignored     bool     `json:"ignored"`
	Category    Category `json:"category"`
}

// ErrorReport is an aggregated error ready for emission. Immutable once
// created.
type ErrorReport struct {
	Timestamp      time.Time `json:"timestamp"`
	Category       Category  `json:"category"`
	PrimaryMessage string    `json:"primary_message"`
	ContextLines   []string  `json:"context_lines,omitempty"`
	SourceFile     string    `json:"source_file"`
	Priority       Priority  `json:"priority"`
}

// DeliveryResult records the independent outcomes of emitting one report.
type DeliveryResult struct {
	LocalSaved bool   `json:"local_saved"`
	LocalPath  string `json:"local_path,omitempty"`
	// RemoteAttempted is false when no remote sink is configured.
	RemoteAttempted bool `json:"remote_attempted"`
	// RemoteDelivered is true when every configured remote accepted the report.
	RemoteDelivered bool `json:"remote_delivered"`
}

// FilePosition tracks the scan cursor for a log file.
type FilePosition struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Inode  uint64 `json:"inode"`
}
