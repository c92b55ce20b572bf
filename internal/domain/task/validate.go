package task

import (
	"strings"
	"unicode/utf8"

	"github.com/Strob0t/taskboard/internal/domain"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// ParseStatus converts s to a Status, failing for unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", domain.Validationf("status must be one of: %s", statusList())
	}
	return st, nil
}

// ValidateCreate trims req in place and checks it against the field rules.
func ValidateCreate(req *CreateRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateTitle(req.Title); err != nil {
		return err
	}
	return validateOptional(req.Description, req.Status)
}

// ValidateUpdate trims req in place and checks it against the field rules.
// The title is required on update as well.
func ValidateUpdate(req *UpdateRequest) error {
	if req.Title == nil {
		return domain.Validation("title is required")
	}
	*req.Title = strings.TrimSpace(*req.Title)
	if err := validateTitle(*req.Title); err != nil {
		return err
	}
	return validateOptional(req.Description, req.Status)
}

func validateTitle(title string) error {
	if title == "" {
		return domain.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return domain.Validationf("title must be at most %d characters", MaxTitleLength)
	}
	return nil
}

func validateOptional(description *string, status *Status) error {
	if description != nil {
		*description = strings.TrimSpace(*description)
		if utf8.RuneCountInString(*description) > MaxDescriptionLength {
			return domain.Validationf("description must be at most %d characters", MaxDescriptionLength)
		}
	}
	if status != nil && !status.Valid() {
		return domain.Validationf("status must be one of: %s", statusList())
	}
	return nil
}

func statusList() string {
	all := Statuses()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
