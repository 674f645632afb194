package nodes

import (
	"strings"
	"unicode"

	"github.com/plan-assist-core/server/internal/agent/model"
	"github.com/plan-assist-core/server/internal/agent/orchestrator"
)

const (
	noContext = "No additional context available."

	parallelEntryLimit = 500
	parallelTotalLimit = 1000
)

var sequentialHeadings = map[string]string{
	orchestrator.LabelComparison:     "📊 Plan Comparison",
	orchestrator.Label5GAvailability: "🌐 5G Information",
	orchestrator.LabelRecommendation: "💡 Recommendations",
	orchestrator.LabelPlanSearch:     "🔍 Search Results",
	orchestrator.LabelFeatureSearch:  "✨ Feature Search",
}

// SequentialContext lists the knowledge base context and every tool result
// under a heading. Labels without a heading are skipped.
func SequentialContext(rag string, entries []model.ToolEntry) string {
	var parts []string
	if rag != "" {
		parts = append(parts, "📚 Knowledge Base Information:\n"+rag)
	}
	for _, e := range entries {
		heading, ok := sequentialHeadings[e.Label]
		if !ok && isPlanLabel(e.Label) {
			heading, ok = "📱 Plan Details", true
		}
		if ok {
			parts = append(parts, heading+":\n"+e.Value)
		}
	}
	if len(parts) == 0 {
		return noContext
	}
	return strings.Join(parts, "\n\n")
}

// ParallelContext keeps the prompt short: up to 500 runes per tool result,
// stopping once the total passes 1000. Without tool results the first 1000
// runes of the knowledge base context are used.
func ParallelContext(rag string, entries []model.ToolEntry) string {
	if len(entries) == 0 {
		return truncate(rag, parallelTotalLimit)
	}
	var sb strings.Builder
	n := 0
	for _, e := range entries {
		chunk := "\n" + truncate(e.Value, parallelEntryLimit)
		sb.WriteString(chunk)
		n += len([]rune(chunk))
		if n > parallelTotalLimit {
			break
		}
	}
	return sb.String()
}

// ConsensusContext puts the comparison first followed by every plan detail.
// The knowledge base context is used only when neither exists.
func ConsensusContext(rag string, entries []model.ToolEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		if e.Label == orchestrator.LabelComparison {
			sb.WriteString(e.Value)
		}
	}
	for _, e := range entries {
		if isPlanLabel(e.Label) {
			sb.WriteString("\n\n" + e.Value)
		}
	}
	if sb.Len() == 0 {
		return rag
	}
	return sb.String()
}

// HierarchicalContext includes everything, each block titled by its label.
func HierarchicalContext(rag string, entries []model.ToolEntry) string {
	var sb strings.Builder
	if rag != "" {
		sb.WriteString("📚 Knowledge Base:\n" + rag + "\n\n")
	}
	for _, e := range entries {
		var title string
		switch {
		case e.Label == orchestrator.LabelPlanSearch:
			title = "🔍 Available Plans"
		case e.Label == orchestrator.LabelRecommendation:
			title = "💡 Recommendations"
		case isPlanLabel(e.Label):
			title = "📱 " + labelTitle(e.Label)
		default:
			title = labelTitle(e.Label)
		}
		sb.WriteString(title + ":\n" + e.Value + "\n\n")
	}
	return sb.String()
}

// isPlanLabel matches plan detail entries (plan_299) but not plan_search.
func isPlanLabel(label string) bool {
	return strings.HasPrefix(label, "plan_") && label != orchestrator.LabelPlanSearch
}

// labelTitle turns "5g_availability" into "5G Availability": underscores
// become spaces and every letter that follows a non-letter is upper-cased.
func labelTitle(label string) string {
	rs := []rune(strings.ReplaceAll(label, "_", " "))
	prevLetter := false
	for i, r := range rs {
		if unicode.IsLetter(r) {
			if !prevLetter {
				rs[i] = unicode.ToUpper(r)
			} else {
				rs[i] = unicode.ToLower(r)
			}
			prevLetter = true
			continue
		}
		prevLetter = false
	}
	return string(rs)
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
