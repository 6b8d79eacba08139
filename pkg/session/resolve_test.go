package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parley/pkg/api"
)

func TestMatchQuestion_ExactBeatsFuzzy(t *testing.T) {
	pool := []api.Question{
		{ID: "q-1", Text: "What is a goroutine and how does it work?"},
		{ID: "q-2", Text: "What is a goroutine?"},
	}
	got := matchQuestion(pool, "what is a goroutine?")
	require.NotNil(t, got)
	require.Equal(t, "q-2", got.ID)
}

func TestMatchQuestion_FuzzyPrefixBothDirections(t *testing.T) {
	pool := []api.Question{
		{ID: "q-1", Text: "Explain how channels synchronize goroutines"},
	}

	// Utterance contains the question's prefix.
	got := matchQuestion(pool, "Okay. Explain how channels synchronize goroutines, please.")
	require.NotNil(t, got)
	require.Equal(t, "q-1", got.ID)

	// Question contains the utterance's prefix.
	got = matchQuestion(pool, "explain how channels s")
	require.NotNil(t, got)
	require.Equal(t, "q-1", got.ID)
}

func TestMatchQuestion_NoPlausibleEntry(t *testing.T) {
	pool := []api.Question{
		{ID: "q-1", Text: "Explain how channels synchronize goroutines"},
	}
	require.Nil(t, matchQuestion(pool, "Describe the memory model guarantees of atomics"))
	require.Nil(t, matchQuestion(pool, "   "))
	require.Nil(t, matchQuestion(nil, "anything"))
}

func TestPlaceholderQuestion_NoAllowance(t *testing.T) {
	q := placeholderQuestion("t-1", "Something off script")
	require.NotEmpty(t, q.ID)
	require.Equal(t, "t-1", q.TopicID)
	require.Equal(t, "Something off script", q.Text)
	require.Nil(t, q.TimeMinutes)

	q2 := placeholderQuestion("t-1", "Something off script")
	require.NotEqual(t, q.ID, q2.ID)
}
