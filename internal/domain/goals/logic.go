package goals

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Transition returns the status a review action moves a goal to.
func Transition(status, action string) (string, error) {
	switch action {
	case ActionApprove, ActionReturn:
		if status != StatusSubmitted {
			return "", fmt.Errorf("%w: %s requires a submitted goal", ErrInvalidStatus, action)
		}
		if action == ActionApprove {
			return StatusApproved, nil
		}
		return StatusReturned, nil
	case ActionAchieve, ActionMiss:
		if status != StatusApproved {
			return "", fmt.Errorf("%w: %s requires an approved goal", ErrInvalidStatus, action)
		}
		if action == ActionAchieve {
			return StatusAchieved, nil
		}
		return StatusMissed, nil
	default:
		return "", ErrInvalidAction
	}
}

// Editable reports whether the owner may change the goal's content.
func Editable(status string) bool {
	return status == StatusDraft || status == StatusReturned
}

// ProgressEditable reports whether the owner may record progress.
func ProgressEditable(status string) bool {
	return Editable(status) || status == StatusApproved
}

func validateInput(in Input) error {
	if in.Quarter < 1 || in.Quarter > 4 {
		return ErrInvalidQuarter
	}
	if in.Year < 2000 || in.Year > 2100 {
		return fmt.Errorf("%w: year is out of range", ErrInvalidGoal)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidGoal)
	}
	for _, text := range []string{in.Title, in.Description, in.Target, in.SelfComment} {
		if utf8.RuneCountInString(text) > MaxTextLength {
			return fmt.Errorf("%w: text is too long", ErrInvalidGoal)
		}
	}
	if in.Progress != nil && (*in.Progress < 0 || *in.Progress > 100) {
		return ErrProgressRange
	}
	return nil
}

func summarize(year, quarter int, goals []Goal) Summary {
	summary := Summary{Year: year, Quarter: quarter, Counts: map[string]int{}}
	for _, status := range Statuses {
		summary.Counts[status] = 0
	}
	var progress float64
	for _, goal := range goals {
		summary.Counts[goal.Status]++
		progress += goal.Progress
	}
	summary.Total = len(goals)
	if len(goals) > 0 {
		summary.AverageProgress = math.Round(progress/float64(len(goals))*100) / 100
	}
	return summary
}
