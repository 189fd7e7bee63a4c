package conversation

import (
	"sort"
	"strings"

	"github.com/xiaot623/solace/internal/domain"
)

var positiveWords = []string{
	"better", "calm", "calmer", "grateful", "happy", "hopeful", "relaxed", "relief",
	"good", "okay", "thank", "thanks", "helpful", "safe", "proud", "peaceful",
}

var negativeWords = []string{
	"anxious", "overwhelmed", "sad", "angry", "afraid", "scared", "hopeless", "tired",
	"lonely", "worried", "panic", "stress", "stressed", "worthless", "hurt", "cry", "crying",
}

// themeKeywords maps a theme label to words that indicate it.
var themeKeywords = map[string][]string{
	"work":          {"work", "job", "boss", "deadline", "career", "office"},
	"relationships": {"partner", "relationship", "friend", "friends", "family", "mother", "father", "wife", "husband"},
	"sleep":         {"sleep", "insomnia", "tired", "night", "rest"},
	"health":        {"health", "sick", "pain", "doctor", "body"},
	"self-esteem":   {"worthless", "failure", "confidence", "ashamed", "useless"},
	"loss":          {"loss", "lost", "died", "death", "grief", "miss"},
	"school":        {"exam", "school", "class", "study", "grades"},
	"finances":      {"money", "rent", "debt", "bills", "finances"},
}

// Analysis holds sentiment and themes derived from a conversation.
type Analysis struct {
	Sentiment string
	Score     float64
	Themes    []string
}

// Analyze derives sentiment and themes from the user turns of a conversation.
func Analyze(turns []domain.Turn) Analysis {
	var pos, neg int
	themeHits := make(map[string]int)

	for _, turn := range turns {
		if turn.Role != domain.RoleUser {
			continue
		}
		for _, word := range tokenize(turn.Content) {
			if contains(positiveWords, word) {
				pos++
			}
			if contains(negativeWords, word) {
				neg++
			}
			for theme, keywords := range themeKeywords {
				if contains(keywords, word) {
					themeHits[theme]++
				}
			}
		}
	}

	a := Analysis{Sentiment: domain.SentimentNeutral}
	if total := pos + neg; total > 0 {
		a.Score = float64(pos-neg) / float64(total)
	}
	switch {
	case a.Score > 0.2:
		a.Sentiment = domain.SentimentPositive
	case a.Score < -0.2:
		a.Sentiment = domain.SentimentNegative
	}

	for theme := range themeHits {
		a.Themes = append(a.Themes, theme)
	}
	sort.Slice(a.Themes, func(i, j int) bool {
		hi, hj := themeHits[a.Themes[i]], themeHits[a.Themes[j]]
		if hi != hj {
			return hi > hj
		}
		return a.Themes[i] < a.Themes[j]
	})
	if len(a.Themes) > 3 {
		a.Themes = a.Themes[:3]
	}
	return a
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r == '-' || r == '\'')
	})
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}
