package api

// Topic is one interview topic as returned by the remote engine.
// Field casing follows the wire format of the topics endpoint.
type Topic struct {
	ID    string `json:"ID"`
	Topic string `json:"Topic"`
}

// Question is one cached unit from a topic's question pool. TimeMinutes is
// the optional per-question answer allowance; nil means untimed.
type Question struct {
	ID          string   `json:"id"`
	TopicID     string   `json:"topic_id"`
	Text        string   `json:"question"`
	Tags        []string `json:"tags,omitempty"`
	TimeMinutes *int     `json:"time_minutes,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// TopicCreateRequest creates a new topic.
type TopicCreateRequest struct {
	Topic string `json:"topic"`
}

// QuestionCreateRequest creates a new question in a topic's pool.
type QuestionCreateRequest struct {
	TopicID     string   `json:"topic_id"`
	Question    string   `json:"question"`
	Tags        []string `json:"tags,omitempty"`
	TimeMinutes *int     `json:"time_minutes,omitempty"`
}

// QuestionUpdateRequest updates an existing question. Nil fields are left
// untouched by the server.
type QuestionUpdateRequest struct {
	TopicID     *string  `json:"topic_id,omitempty"`
	Question    *string  `json:"question,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	TimeMinutes *int     `json:"time_minutes,omitempty"`
}

// StartResponse is the payload of a successful interview start call.
type StartResponse struct {
	SessionID       string `json:"session_id"`
	InitialQuestion string `json:"initial_question"`
}

// SubmitResponse is the interviewer's reply to a submitted answer.
type SubmitResponse struct {
	Response     string   `json:"response"`
	SessionEnded bool     `json:"session_ended"`
	Summary      *Summary `json:"summary,omitempty"`
}

// Summary is the server-computed evaluation of one interview attempt.
type Summary struct {
	TechnicalScore     int      `json:"technical_score"`
	GrammaticalScore   int      `json:"grammatical_score"`
	StrongPoints       []string `json:"strong_points"`
	WeakPoints         []string `json:"weak_points"`
	PracticePoints     []string `json:"practice_points"`
	ContextualRelevant bool     `json:"contextual_relevant"`
	OffTopicCount      int      `json:"off_topic_count"`
}

// SessionRecord is one entry of the interview-sessions listing.
type SessionRecord struct {
	SessionID        string `json:"session_id"`
	TopicID          string `json:"topic_id"`
	TopicName        string `json:"topic_name"`
	StartedAt        string `json:"started_at"`
	EndedAt          string `json:"ended_at,omitempty"`
	DurationMinutes  *int   `json:"duration_minutes,omitempty"`
	TechnicalScore   *int   `json:"technical_score,omitempty"`
	GrammaticalScore *int   `json:"grammatical_score,omitempty"`
	Status           string `json:"status"`
}

// SessionDetail is the full record of one past session, conversation included.
type SessionDetail struct {
	SessionID       string    `json:"session_id"`
	TopicID         string    `json:"topic_id"`
	TopicName       string    `json:"topic_name"`
	StartedAt       string    `json:"started_at"`
	EndedAt         string    `json:"ended_at,omitempty"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Conversation    []Message `json:"conversation"`
	Summary         *Summary  `json:"summary,omitempty"`
	Status          string    `json:"status"`
}

// Message is one turn of an interview conversation.
type Message struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionFilters narrows a ListSessions call. Zero values are omitted.
type SessionFilters struct {
	Status    string
	TopicID   string
	DateFrom  string
	DateTo    string
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// SessionListing is the paginated response of the interview-sessions endpoint.
type SessionListing struct {
	Sessions   []SessionRecord `json:"sessions"`
	Pagination map[string]any  `json:"pagination,omitempty"`
	Summary    map[string]any  `json:"summary,omitempty"`
}
