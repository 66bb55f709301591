package notifier

import (
	"fmt"
	"math/rand/v2"

	"github.com/julianstephens/habitquest/internal/habits"
)

type Message struct {
	Title string
	Body  string
}

func (m Message) String() string {
	if m.Body == "" {
		return m.Title
	}
	return m.Title + ": " + m.Body
}

var motivational = []Message{
	{Title: "🎯 Habit time!", Body: "Don't forget to check off today's habits!"},
	{Title: "🔥 Keep your streak alive!", Body: "One more day to make your habits stronger!"},
	{Title: "⭐ You've got this!", Body: "Small daily actions lead to big results!"},
	{Title: "💪 Strength and focus!", Body: "Your habits are waiting for you!"},
	{Title: "🌟 Stay the course!", Body: "Every checked day is a win!"},
}

// DailyReminder picks one of the motivational messages. A nil r uses the global source.
func DailyReminder(r *rand.Rand) Message {
	if r == nil {
		return motivational[rand.IntN(len(motivational))]
	}
	return motivational[r.IntN(len(motivational))]
}

// PendingReminder reports how many habits are still open today. ok is false when nothing is left.
func PendingReminder(remaining int) (msg Message, ok bool) {
	if remaining <= 0 {
		return Message{}, false
	}
	noun := "habits"
	if remaining == 1 {
		noun = "habit"
	}
	return Message{
		Title: "⏰ Reminder",
		Body:  fmt.Sprintf("You still have %d %s left today!", remaining, noun),
	}, true
}

// AchievementMessage returns the celebration for a. newLevel is only used for level ups.
func AchievementMessage(a habits.Achievement, newLevel int) (Message, bool) {
	switch a {
	case habits.AchievementStreak5:
		return Message{Title: "🔥 5-day streak!", Body: "You earned a +5 XP bonus! Keep it up!"}, true
	case habits.AchievementStreak10:
		return Message{Title: "🔥🔥 Amazing! 10 days in a row!", Body: "Your dedication is inspiring!"}, true
	case habits.AchievementLevelUp:
		return Message{Title: "⭐ Level up!", Body: fmt.Sprintf("Congratulations! You reached level %d!", newLevel)}, true
	case habits.AchievementPerfectDay:
		return Message{Title: "🎉 Perfect day!", Body: "Every habit completed today!"}, true
	}
	return Message{}, false
}
