// Package prompt turns a user profile and a question into the instruction
// prompt fed to the engine.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"medchatd/pkg/types"
)

// DOBLayout is the accepted date-of-birth format.
const DOBLayout = "2006-01-02"

// Age returns the age in whole years at now for a YYYY-MM-DD date of birth.
func Age(dob string, now time.Time) (int, error) {
	born, err := time.Parse(DOBLayout, strings.TrimSpace(dob))
	if err != nil {
		return 0, fmt.Errorf("invalid dob %q: %w", dob, err)
	}
	if born.After(now) {
		return 0, fmt.Errorf("dob %q is in the future", dob)
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, nil
}

// orNone returns fallback when s is empty or "none".
func orNone(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return fallback
	}
	return s
}

// UserContext renders the one-paragraph description of the user.
func UserContext(p types.UserProfile, now time.Time) (string, error) {
	age, err := Age(p.DOB, now)
	if err != nil {
		return "", err
	}
	gender := strings.ToLower(strings.TrimSpace(p.Gender))
	if gender == "" {
		return "", errors.New("gender is required")
	}
	name := strings.TrimSpace(p.FirstName)
	if name == "" {
		return "", errors.New("first_name is required")
	}
	conditions := orNone(p.MedicalConditions, "no medical conditions")
	medications := orNone(p.Medications, "no current medications")
	goals := orNone(p.HealthGoals, "no specific health goals")
	return fmt.Sprintf(
		"The user is a %d-year-old %s named %s. They have %s, are taking %s, and their health goal is to %s.",
		age, gender, name, strings.ToLower(conditions), medications, strings.ToLower(goals),
	), nil
}

const instructions = "You are a helpful, empathetic AI Medical Assistant. Address the user " +
	"as “you,” refer to yourself as “I,” and avoid medical jargon.\n\n" +
	"FORMAT RULES\n" +
	"1. When you give a numbered list, write it like:\n" +
	"   1. First item text\n\n" +
	"   2. Second item text\n\n" +
	"   3. Third item text\n\n" +
	"   (← exactly two \\n after every item, including the last.)\n" +
	"2. Do **not** insert single newlines inside an item.\n" +
	"3. After the list, continue with a normal paragraph.\n\n" +
	"If you detect possible emergencies (heart attack, stroke, chest pain, " +
	"trouble breathing, excessive bleeding), STOP and reply only with:\n" +
	"\"This may be a medical emergency. Please call 911 or go to the ER immediately.\"\n\n"

// Build wraps the user context and question in the [INST] template.
func Build(userContext, question string) string {
	var b strings.Builder
	b.Grow(len(instructions) + len(userContext) + len(question) + 64)
	b.WriteString("[INST]\n")
	b.WriteString(instructions)
	b.WriteString("User context: ")
	b.WriteString(userContext)
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n[/INST]")
	return b.String()
}

// ForProfile builds the full prompt for a profile and question.
func ForProfile(p types.UserProfile, question string, now time.Time) (string, error) {
	uc, err := UserContext(p, now)
	if err != nil {
		return "", err
	}
	return Build(uc, question), nil
}
