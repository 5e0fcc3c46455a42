package engine

import (
	"regexp"
	"strings"

	"github.com/slotbot/slotbot/internal/errors"
)

const (
	maxMessageLength  = 300
	maxAttendeeEmails = 2
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// injectionPatterns catch the common prompt-injection phrasings before any
// text reaches the language model.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an)\s+`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
	regexp.MustCompile(`(?i)<\s*/?system\s*>`),
	regexp.MustCompile(`(?i)\[INST\]`),
	regexp.MustCompile(`(?i)<<\s*SYS\s*>>`),
}

// validateText screens an inbound message. The returned error text doubles as
// the corrective reply sent back to the sender.
func validateText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errors.Validation("please send a text message")
	}
	if len(text) > maxMessageLength {
		return errors.Validationf("please keep your message under %d characters", maxMessageLength)
	}
	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			return errors.Validation("I can only help with scheduling meetings. How can I help you book a time?")
		}
	}
	return nil
}

func validEmail(email string) bool {
	return emailRE.MatchString(email)
}
