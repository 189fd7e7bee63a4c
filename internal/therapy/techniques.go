package therapy

import "strings"

type profile struct {
	concern    string
	techniques []string
	goals      []string
}

var defaultProfile = profile{
	concern:    "general emotional support",
	techniques: []string{"active listening", "reflective validation", "mindful breathing"},
	goals:      []string{"Identify what feels most pressing today", "Leave with one small next step"},
}

var profiles = map[string]profile{
	"anxiety": {
		concern:    "anxiety management",
		techniques: []string{"diaphragmatic breathing", "5-4-3-2-1 grounding", "cognitive reframing"},
		goals:      []string{"Lower physiological arousal", "Name the specific worry", "Practice one grounding exercise"},
	},
	"stress": {
		concern:    "stress regulation",
		techniques: []string{"progressive muscle relaxation", "problem-solving steps", "time boxing"},
		goals:      []string{"Separate controllable from uncontrollable stressors", "Choose one manageable action"},
	},
	"sadness": {
		concern:    "low mood",
		techniques: []string{"behavioral activation", "self-compassion practice", "gratitude reflection"},
		goals:      []string{"Acknowledge and validate the feeling", "Plan one small pleasant activity"},
	},
	"depression": {
		concern:    "depressive symptoms",
		techniques: []string{"behavioral activation", "thought records", "activity scheduling"},
		goals:      []string{"Assess current functioning", "Schedule one achievable activity", "Check support network"},
	},
	"anger": {
		concern:    "anger regulation",
		techniques: []string{"time-out strategy", "box breathing", "assertive communication"},
		goals:      []string{"Identify the trigger", "Cool down physiologically", "Plan an assertive response"},
	},
	"loneliness": {
		concern:    "social connection",
		techniques: []string{"social connection planning", "self-compassion practice", "values clarification"},
		goals:      []string{"Explore what connection would look like", "Identify one person to reach out to"},
	},
	"fear": {
		concern:    "fear and avoidance",
		techniques: []string{"graded exposure planning", "grounding", "safety behaviour review"},
		goals:      []string{"Describe the feared situation", "Rate the fear and notice it change"},
	},
	"overwhelm": {
		concern:    "feeling overwhelmed",
		techniques: []string{"task chunking", "mindful breathing", "prioritization"},
		goals:      []string{"List what is on your plate", "Pick the single next step"},
	},
}

func lookupProfile(emotion string) profile {
	if p, ok := profiles[strings.ToLower(strings.TrimSpace(emotion))]; ok {
		return p
	}
	return defaultProfile
}
