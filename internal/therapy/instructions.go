package therapy

import (
	"fmt"
	"strings"

	"github.com/xiaot623/solace/internal/domain"
)

// Instructions renders a therapeutic context into the system instruction sent upstream.
func Instructions(tc domain.TherapeuticContext) string {
	var b strings.Builder
	b.WriteString("You are a supportive voice companion for a wellbeing app. ")
	b.WriteString("Speak warmly, keep replies short, and do not diagnose.\n")
	fmt.Fprintf(&b, "Primary concern: %s.\n", tc.PrimaryConcern)
	if len(tc.RecommendedTechniques) > 0 {
		fmt.Fprintf(&b, "Techniques to draw on: %s.\n", strings.Join(tc.RecommendedTechniques, "; "))
	}
	if len(tc.SessionGoals) > 0 {
		fmt.Fprintf(&b, "Session goals: %s.\n", strings.Join(tc.SessionGoals, "; "))
	}
	if tc.RecentHistory.Summary != "" {
		fmt.Fprintf(&b, "Recent history: %s\n", tc.RecentHistory.Summary)
	}
	if tc.SafetyLevel == domain.SafetyLevelElevated {
		b.WriteString("Safety level is elevated: check on immediate safety first and share crisis line information if risk is expressed.\n")
	}
	return b.String()
}
