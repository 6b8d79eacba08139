package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/go-go-golems/parley/pkg/api"
)

// fuzzyPrefixLen is how much of a question text has to line up for a fuzzy
// match. Interviewer phrasing drifts (prefixes, trailing clarifications),
// so the match runs on a bounded prefix in both containment directions.
const fuzzyPrefixLen = 20

// matchQuestion finds the pool entry for an interviewer utterance: exact
// text match first, then fuzzy prefix containment. Returns nil when the
// pool has no plausible entry.
func matchQuestion(pool []api.Question, text string) *api.Question {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}
	for i := range pool {
		if strings.ToLower(strings.TrimSpace(pool[i].Text)) == needle {
			return &pool[i]
		}
	}
	for i := range pool {
		candidate := strings.ToLower(strings.TrimSpace(pool[i].Text))
		if candidate == "" {
			continue
		}
		if strings.Contains(needle, prefixOf(candidate)) || strings.Contains(candidate, prefixOf(needle)) {
			return &pool[i]
		}
	}
	return nil
}

func prefixOf(s string) string {
	if len(s) > fuzzyPrefixLen {
		return s[:fuzzyPrefixLen]
	}
	return s
}

// placeholderQuestion stands in for an utterance the pool cannot account
// for, so the session always has an active question. Placeholders carry no
// answer allowance: an unknown question never starts a countdown.
func placeholderQuestion(topicID, text string) *api.Question {
	return &api.Question{
		ID:      uuid.NewString(),
		TopicID: topicID,
		Text:    text,
	}
}
