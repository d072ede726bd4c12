package revision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/planloom/loom/internal/plan"
)

// BuildFeedback renders the full validation error list as corrective guidance
// for the generator. Every error gets a numbered line naming the exact ids,
// references, or cycle chain involved, so the model can fix all violations in
// one regeneration instead of rediscovering them one at a time.
func BuildFeedback(errs []plan.ValidationError) string {
	var sb strings.Builder

	sb.WriteString("The previous plan failed validation. Fix ALL of the following problems and regenerate the complete plan:\n")

	for i, e := range errs {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s", i+1, e.Code, e.Message))

		if detail := contextDetail(e.Context); detail != "" {
			sb.WriteString(" (")
			sb.WriteString(detail)
			sb.WriteString(")")
		}

		if e.Details != nil && len(e.Details.Cycle) > 0 {
			sb.WriteString(fmt.Sprintf(" [cycle: %s]", strings.Join(e.Details.Cycle, " -> ")))
		}

		sb.WriteString("\n")
	}

	sb.WriteString("Keep everything that was already correct. Do not introduce new step ids unless a fix requires one.")
	return sb.String()
}

// contextDetail flattens the error context map into "key=value" pairs in
// sorted key order for stable output.
func contextDetail(ctx map[string]any) string {
	if len(ctx) == 0 {
		return ""
	}

	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, ctx[k]))
	}
	return strings.Join(pairs, ", ")
}
