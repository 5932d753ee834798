package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"stackit/internal/forum/model"
	pkgerrors "stackit/pkg/errors"
)

const (
	maxTagFilter      = 10
	maxNameLength     = 50
	minPasswordLength = 8
	maxPasswordLength = 72
)

func fieldError(code pkgerrors.ErrorCode, field, reason string) error {
	return pkgerrors.Newf(code, "%s: %s", field, reason).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// normalizeDraft validates a question draft and returns its stored form: trimmed
// title and body, lower-cased tags in submission order.
func normalizeDraft(draft model.QuestionDraft) (model.QuestionDraft, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return model.QuestionDraft{}, pkgerrors.ValidationError("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return model.QuestionDraft{}, pkgerrors.ValidationError("title", "must be at most 200 characters")
	}

	body := strings.TrimSpace(draft.Body)
	if body == "" {
		return model.QuestionDraft{}, pkgerrors.ValidationError("body", "must not be empty")
	}

	tags, err := normalizeTags(draft.Tags)
	if err != nil {
		return model.QuestionDraft{}, err
	}
	return model.QuestionDraft{Title: title, Body: body, Tags: tags}, nil
}

// normalizeTagFilter splits comma separated values into distinct lower-cased tags.
// Blank entries are ignored.
func normalizeTagFilter(raw []string) ([]string, error) {
	var tags []string
	seen := make(map[string]struct{})
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			tag := strings.ToLower(strings.TrimSpace(part))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	if len(tags) > maxTagFilter {
		return nil, pkgerrors.ValidationError("tag", "at most 10 tags may be combined")
	}
	return tags, nil
}

func normalizeTags(raw []string) ([]string, error) {
	if len(raw) < model.MinTags {
		return nil, fieldError(pkgerrors.ValidationFailed, "tags", "at least one tag is required")
	}
	if len(raw) > model.MaxTags {
		return nil, fieldError(pkgerrors.TooManyTags, "tags", "at most 5 tags are allowed")
	}
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" {
			return nil, fieldError(pkgerrors.InvalidTag, "tags", "tags must not be empty")
		}
		if utf8.RuneCountInString(tag) > model.MaxTagLength {
			return nil, fieldError(pkgerrors.InvalidTag, "tags", "tags must be at most 32 characters")
		}
		if _, dup := seen[tag]; dup {
			return nil, fieldError(pkgerrors.InvalidTag, "tags", "duplicate tag "+tag)
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags, nil
}

func normalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", pkgerrors.ValidationError("reason", "must not be empty")
	}
	return reason, nil
}

func normalizeAnswerBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", pkgerrors.ValidationError("body", "must not be empty")
	}
	return body, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fieldError(pkgerrors.InvalidUsername, "name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fieldError(pkgerrors.InvalidUsername, "name", "must be at most 50 characters")
	}
	return name, nil
}

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fieldError(pkgerrors.InvalidEmail, "email", "must be a valid address")
	}
	return email, nil
}

// validatePassword requires 8 to 72 bytes with at least one letter and one digit.
// 72 bytes is the most bcrypt will hash.
func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fieldError(pkgerrors.InvalidPassword, "password", "must be 8 to 72 characters")
	}
	if !hasLetterAndNumber(password) {
		return fieldError(pkgerrors.InvalidPassword, "password", "must contain a letter and a digit")
	}
	return nil
}

func hasLetterAndNumber(password string) bool {
	hasLetter := false
	hasNumber := false
	for i := 0; i < len(password); i++ {
		b := password[i]
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') {
			hasLetter = true
		} else if b >= '0' && b <= '9' {
			hasNumber = true
		}
		if hasLetter && hasNumber {
			return true
		}
	}
	return false
}
