package core

import "github.com/google/uuid"

type JournalMood string

const (
	MoodVeryHappy JournalMood = "very_happy"
	MoodHappy     JournalMood = "happy"
	MoodNeutral   JournalMood = "neutral"
	MoodSad       JournalMood = "sad"
	MoodVerySad   JournalMood = "very_sad"
	MoodAngry     JournalMood = "angry"
	MoodExcited   JournalMood = "excited"
	MoodAnxious   JournalMood = "anxious"
	MoodGrateful  JournalMood = "grateful"
)

func (m JournalMood) Valid() bool {
	switch m {
	case MoodVeryHappy, MoodHappy, MoodNeutral, MoodSad, MoodVerySad,
		MoodAngry, MoodExcited, MoodAnxious, MoodGrateful:
		return true
	}
	return false
}

type JournalEntry struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	Title          string      `json:"title,omitempty"`
	Content        string      `json:"content"`
	Mood           JournalMood `json:"mood,omitempty"`
	SentimentScore *float64    `json:"sentiment_score,omitempty"`
	Keywords       Tags        `json:"keywords"`
	Summary        string      `json:"summary,omitempty"`
	Weather        string      `json:"weather,omitempty"`
	Location       string      `json:"location,omitempty"`
	CreatedAt      Timestamp   `json:"created_at"`
	UpdatedAt      Timestamp   `json:"updated_at"`
}

type JournalInput struct {
	Title    string      `json:"title,omitempty"`
	Content  string      `json:"content"`
	Mood     JournalMood `json:"mood,omitempty"`
	Weather  string      `json:"weather,omitempty"`
	Location string      `json:"location,omitempty"`
}

func (in JournalInput) Validate() error {
	return firstError(
		checkLength("title", in.Title, 0, 255),
		checkLength("content", in.Content, 1, 10000),
		checkChoice("mood", in.Mood),
		checkLength("weather", in.Weather, 0, 100),
		checkLength("location", in.Location, 0, 255),
	)
}

type JournalPatch struct {
	Title    *string      `json:"title,omitempty"`
	Content  *string      `json:"content,omitempty"`
	Mood     *JournalMood `json:"mood,omitempty"`
	Weather  *string      `json:"weather,omitempty"`
	Location *string      `json:"location,omitempty"`
}

func (p JournalPatch) Validate() error {
	return firstError(
		checkOptionalLength("title", p.Title, 0, 255),
		checkOptionalLength("content", p.Content, 1, 10000),
		checkOptionalChoice("mood", p.Mood),
		checkOptionalLength("weather", p.Weather, 0, 100),
		checkOptionalLength("location", p.Location, 0, 255),
	)
}

type JournalStats struct {
	TotalEntries     int            `json:"total_entries"`
	EntriesThisMonth int            `json:"entries_this_month"`
	MoodDistribution map[string]int `json:"mood_distribution"`
	AverageSentiment *float64       `json:"average_sentiment,omitempty"`
	LongestStreak    int            `json:"longest_streak"`
}

type MoodPoint struct {
	Mood         JournalMood `json:"mood"`
	AvgSentiment *float64    `json:"avg_sentiment,omitempty"`
}

// MoodTrends groups mood points by ISO date.
type MoodTrends struct {
	Trends     map[string][]MoodPoint `json:"trends"`
	PeriodDays int                    `json:"period_days"`
	StartDate  string                 `json:"start_date"`
	EndDate    string                 `json:"end_date"`
}

type JournalAnalysis struct {
	AnalyzedEntries int    `json:"analyzed_entries"`
	Message         string `json:"message"`
}
