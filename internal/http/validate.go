package httpx

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"topicspin-api/internal/models"
)

var personName = regexp.MustCompile(`^[a-zA-Z\s]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personName.MatchString(fl.Field().String())
	})
	return v
}

var fieldMessages = map[string]string{
	"EmployeeID": "Employee ID must be exactly 9 digits",
	"Name":       "Name must be at least 2 characters and contain only letters and spaces",
	"Channel":    "Channel must be Banca or Retail",
	"Category":   "Category must be Rookie or Vintage",
	"Room":       "Please select a room",
}

// checkSubmission trims s in place and returns one message per invalid field.
func checkSubmission(v *validator.Validate, s *models.Submission, rooms []int) []string {
	s.EmployeeID = strings.TrimSpace(s.EmployeeID)
	s.Name = strings.TrimSpace(s.Name)

	var msgs []string
	if err := v.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []string{err.Error()}
		}
		for _, fe := range verrs {
			if m, ok := fieldMessages[fe.StructField()]; ok {
				msgs = append(msgs, m)
				continue
			}
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	if s.Room > 0 && !slices.Contains(rooms, s.Room) {
		msgs = append(msgs, fmt.Sprintf("Room %d does not exist", s.Room))
	}
	return msgs
}
