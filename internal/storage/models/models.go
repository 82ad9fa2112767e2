package models

import "time"

type ExtractionBatch struct {
	ID           string
	SessionID    string
	Strategy     string
	Method       string
	URLCount     int
	SuccessCount int
	SegmentCount int
	CreatedAt    time.Time
}

type BatchURL struct {
	ID      int
	BatchID string
	URL     string
	Status  string
	Error   string
}

type AnswerRecord struct {
	ID        string
	SessionID string
	Question  string
	Answer    string
	LatencyMS int
	CreatedAt time.Time
}

type AnswerSource struct {
	ID        int
	AnswerID  string
	SourceURL string
	SegmentID string
	Score     float64
}
