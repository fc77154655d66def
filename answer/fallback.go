package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	travelKeywords    = []string{"passport", "ਪਾਸਪੋਰਟ", "visa", "travel", "document"}
	admissionKeywords = []string{"admission", "apply", "application", "enroll"}
)

// fallbackAnswer is the canned reply used when generation is rate limited.
// It depends only on the question and department.
func fallbackAnswer(question, department string) string {
	lower := strings.ToLower(question)

	switch {
	case containsAny(lower, travelKeywords):
		return "I can see you're asking about passport or travel document requirements.\n\n" +
			"While I'm temporarily unable to access my full knowledge base due to high usage, I can suggest:\n\n" +
			"• For passport validity requirements, typically most countries require 6+ months validity\n" +
			"• Check with the embassy or consulate of your destination country\n" +
			"• Visit the official passport office or website for current requirements\n" +
			"• Contact the international student office if this is for study abroad\n\n" +
			"I apologize for the temporary limitation. Please try again in a few minutes for a more detailed response."
	case containsAny(lower, admissionKeywords):
		return fmt.Sprintf("I can see you're asking about admissions or applications.\n\n"+
			"While my AI is temporarily unavailable, for %[1]s admissions:\n\n"+
			"• Check the official college admissions website\n"+
			"• Contact the %[1]s admissions office directly\n"+
			"• Visit the registrar's office for application deadlines\n"+
			"• Review admission requirements on the college portal\n\n"+
			"Please try again shortly for more detailed guidance.", department)
	default:
		return fmt.Sprintf("I understand your question about \"%s\".\n\n"+
			"I'm temporarily experiencing high usage and can't access my full AI capabilities right now.\n\n"+
			"For the best help with your %[2]s question:\n"+
			"• Try asking again in a few minutes\n"+
			"• Contact %[2]s directly for immediate assistance\n"+
			"• Check the official college website and student portal\n\n"+
			"I apologize for the inconvenience!", clip(question, 100), department)
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// clip cuts s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
