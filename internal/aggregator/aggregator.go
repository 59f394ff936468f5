package aggregator

import (
	"regexp"
	"strings"
	"time"

	"github.com/chatlytics/logmonitor/pkg/types"
)

// priorities maps a category to its remediation priority.
var priorities = map[types.Category]types.Priority{
	types.CategoryCritical:  types.PriorityHigh,
	types.CategoryException: types.PriorityHigh,
	types.CategoryError:     types.PriorityMedium,
	types.CategoryUserError: types.PriorityLow,
	types.CategoryUnknown:   types.PriorityMedium,
}

// PriorityFor returns the remediation priority for a category.
func PriorityFor(cat types.Category) types.Priority {
	if p, ok := priorities[cat]; ok {
		return p
	}
	return types.PriorityMedium
}

// timestampPrefix strips a leading timestamp so the same error re-logged a
// second later still deduplicates.
var timestampPrefix = regexp.MustCompile(
	`^\[?\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?\]?\s*`)

// Aggregator turns matched lines into error reports. It keeps a rolling
// buffer of the most recent lines, regardless of classification, and attaches
// them as context when a match occurs. Repeats of the same primary message
// within the dedup window are suppressed.
type Aggregator struct {
	contextSize int
	dedupWindow time.Duration
	sourceFile  string

	context []string
	recent  map[string]time.Time

	now func() time.Time
}

// Config holds aggregator configuration
type Config struct {
	// ContextLines is the number of recent lines attached to each report.
	ContextLines int
	// DedupWindow suppresses repeats of the same primary message. Zero
	// disables deduplication.
	DedupWindow time.Duration
	// SourceFile is recorded on every report.
	SourceFile string
}

// New creates a new Aggregator
func New(cfg Config) *Aggregator {
	return &Aggregator{
		contextSize: cfg.ContextLines,
		dedupWindow: cfg.DedupWindow,
		sourceFile:  cfg.SourceFile,
		recent:      make(map[string]time.Time),
		now:         time.Now,
	}
}

// Observe records a line in the rolling context buffer. Every scanned line is
// observed, matched or not, so reports carry surrounding context.
func (a *Aggregator) Observe(line string) {
	if a.contextSize <= 0 {
		return
	}
	a.context = append(a.context, line)
	if len(a.context) > a.contextSize {
		a.context = a.context[len(a.context)-a.contextSize:]
	}
}

// Aggregate builds an ErrorReport for a matched line, or returns nil when the
// line is not reportable or is a duplicate of a recently reported error.
func (a *Aggregator) Aggregate(line string, event types.MatchEvent) *types.ErrorReport {
	if !event.Interesting || event.Ignored {
		return nil
	}

	primary := strings.TrimSpace(line)
	now := a.now()

	if a.dedupWindow > 0 {
		key := normalize(primary)
		if last, ok := a.recent[key]; ok && now.Sub(last) < a.dedupWindow {
			return nil
		}
		a.recent[key] = now
		a.prune(now)
	}

	return &types.ErrorReport{
		Timestamp:      now,
		Category:       event.Category,
		PrimaryMessage: primary,
		ContextLines:   append([]string(nil), a.context...),
		SourceFile:     a.sourceFile,
		Priority:       PriorityFor(event.Category),
	}
}

// normalize reduces a primary message to its dedup key.
func normalize(primary string) string {
	return timestampPrefix.ReplaceAllString(primary, "")
}

// prune drops dedup entries older than the window so the map stays bounded.
func (a *Aggregator) prune(now time.Time) {
	for key, last := range a.recent {
		if now.Sub(last) >= a.dedupWindow {
			delete(a.recent, key)
		}
	}
}
