package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssessmentType represents the kind of assessment attached to a course.
type AssessmentType string

const (
	AssessmentQuiz       AssessmentType = "quiz"
	AssessmentAssignment AssessmentType = "assignment"
	AssessmentExam       AssessmentType = "exam"
	AssessmentProject    AssessmentType = "project"
)

// ValidAssessmentType reports whether t is a known assessment type.
func ValidAssessmentType(t AssessmentType) bool {
	switch t {
	case AssessmentQuiz, AssessmentAssignment, AssessmentExam, AssessmentProject:
		return true
	}
	return false
}

// QuestionType represents how a question is answered and scored.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionTrueFalse QuestionType = "tf"
	QuestionShort     QuestionType = "short"
	QuestionEssay     QuestionType = "essay"
	QuestionCode      QuestionType = "code"
)

// ValidQuestionType reports whether t is a known question type.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionMCQ, QuestionTrueFalse, QuestionShort, QuestionEssay, QuestionCode:
		return true
	}
	return false
}

// Objective reports whether answers of this type are scored by matching
// the stored correct answer. Other types need instructor grading.
func (t QuestionType) Objective() bool {
	return t == QuestionMCQ || t == QuestionTrueFalse
}

// Assessment represents a scored activity within a course.
type Assessment struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CourseID    uuid.UUID
	Title       string
	Description string
	Type        AssessmentType
	TotalMarks  int
	// PassingScore is a percentage threshold.
	PassingScore int
	IsPublished  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Question represents one question of an assessment. Options and
// CorrectAnswer are meaningful for objective types only.
type Question struct {
	ID            uuid.UUID
	AssessmentID  uuid.UUID
	Type          QuestionType
	Prompt        string
	Options       []string
	CorrectAnswer string
	Marks         int
	OrderIndex    int
	Explanation   string
}

// AutoScore returns the marks earned for answer at submission time.
// Objective questions match the stored answer exactly; subjective
// questions earn full marks until an instructor grades them.
func (q *Question) AutoScore(answer string) int {
	if q.Type.Objective() {
		if answer == q.CorrectAnswer {
			return q.Marks
		}
		return 0
	}
	return q.Marks
}

// AttemptStatus represents the lifecycle of an assessment attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
)

// Attempt represents one user's run at an assessment.
type Attempt struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	AssessmentID uuid.UUID
	UserID       uuid.UUID
	Status       AttemptStatus
	TotalMarks   int
	// MarksObtained and Percentage are zero until the attempt leaves
	// in_progress.
	MarksObtained int
	Percentage    decimal.Decimal
	StartedAt     time.Time
	SubmittedAt   *time.Time
}

// Finalize records the tallied marks, derives the percentage, and moves
// the attempt to status.
func (a *Attempt) Finalize(obtained int, status AttemptStatus, at time.Time) {
	a.MarksObtained = obtained
	if a.TotalMarks > 0 {
		a.Percentage = decimal.NewFromInt(int64(obtained)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(a.TotalMarks))).
			Round(2)
	} else {
		a.Percentage = decimal.Zero
	}
	a.Status = status
	a.SubmittedAt = &at
}

// Passed reports whether the attempt's percentage meets the threshold.
func (a *Attempt) Passed(passingScore int) bool {
	return a.Percentage.GreaterThanOrEqual(decimal.NewFromInt(int64(passingScore)))
}

// Response represents one answered question within an attempt.
type Response struct {
	ID           uuid.UUID
	AttemptID    uuid.UUID
	QuestionID   uuid.UUID
	Answer       string
	MarksAwarded int
	Feedback     string
	SubmittedAt  time.Time
}

// ScoreSubmission tallies answers (keyed by question ID) against the
// assessment's questions. Unanswered questions earn nothing and produce
// no response; unknown question IDs are ignored.
func ScoreSubmission(attemptID uuid.UUID, questions []*Question, answers map[uuid.UUID]string, at time.Time) ([]*Response, int) {
	var (
		responses []*Response
		total     int
	)
	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		awarded := q.AutoScore(answer)
		total += awarded
		responses = append(responses, &Response{
			ID:           uuid.New(),
			AttemptID:    attemptID,
			QuestionID:   q.ID,
			Answer:       answer,
			MarksAwarded: awarded,
			SubmittedAt:  at,
		})
	}
	return responses, total
}
