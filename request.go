package topictree

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultModel is the model used when a request does not name one.
const DefaultModel = "gpt-4.1-mini"

// Request describes the topic tree to generate.
type Request struct {
	Theme                   string   `json:"theme" validate:"required"`
	NumMainTopics           int      `json:"num_main_topics" validate:"min=1,max=30"`
	NumSubtopics            int      `json:"num_subtopics" validate:"min=0,max=20"`
	NumCurriculumTopics     int      `json:"num_curriculum_topics" validate:"min=0,max=20"`
	IncludeGeneralTopic     bool     `json:"include_general_topic"`
	IncludeMethodologyTopic bool     `json:"include_methodology_topic"`
	DisciplineURI           []string `json:"discipline_uri,omitempty" validate:"omitempty,dive,required"`
	EducationalContextURI   []string `json:"educational_context_uri,omitempty" validate:"omitempty,dive,required"`
	Model                   string   `json:"model" validate:"required"`
}

// DefaultRequest returns a Request pre-filled with the default counts and model. Decoding a JSON
// body into it leaves the defaults for every omitted field.
func DefaultRequest() Request {
	return Request{
		NumMainTopics:       5,
		NumSubtopics:        3,
		NumCurriculumTopics: 2,
		Model:               DefaultModel,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks the request bounds. The returned error wraps ErrInvalidRequest.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Theme) == "" {
		return fmt.Errorf("%w: theme is required", ErrInvalidRequest)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
