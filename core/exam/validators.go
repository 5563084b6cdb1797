package exam

import (
	"errors"
	"fmt"

	"github.com/trezcool/shule/core"
)

var (
	errDateRequired       = errors.New("this field is required")
	errObtainedExceedsMax = errors.New("marks obtained cannot exceed maximum marks")
	errDuplicateSubjects  = errors.New("duplicate subject names are not allowed")
)

// validateSubjectNames checks that subject names are unique within a test.
func validateSubjectNames(subjects SubjectList) error {
	seen := make(map[string]struct{}, len(subjects))
	for _, sub := range subjects {
		if _, ok := seen[sub.Name]; ok {
			return core.NewValidationError(
				errDuplicateSubjects,
				core.FieldError{Field: "subjects", Error: fmt.Sprintf("duplicate subject %q", sub.Name)},
			)
		}
		seen[sub.Name] = struct{}{}
	}
	return nil
}
