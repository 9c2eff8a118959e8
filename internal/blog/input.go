package blog

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/models"
)

// validate is shared by every input type. Initialized in init() with the
// custom username rule.
var validate *validator.Validate

// usernamePattern admits letters, digits and @ . + - _.
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

func init() {
	validate = validator.New()
	err := validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("blog: register username validation: %v", err))
	}
}

// check validates in and reports failures as models.ErrInvalidValue.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return fmt.Errorf("%w: %s fails %q", models.ErrInvalidValue, f.Namespace(), f.Tag())
	}
	return fmt.Errorf("%w: %w", models.ErrInvalidValue, err)
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username  string `validate:"required,max=50,username"`
	Email     string `validate:"omitempty,email,max=254"`
	FirstName string `validate:"max=150"`
	LastName  string `validate:"max=150"`
	Password  string `validate:"required,min=8,max=72"`
}

// ProfileInput carries the editable fields of a user and their profile.
// An empty Avatar keeps the current one.
type ProfileInput struct {
	Email     string `validate:"omitempty,email,max=254"`
	FirstName string `validate:"max=150"`
	LastName  string `validate:"max=150"`
	Avatar    string `validate:"max=255"`
	Bio       string `validate:"max=2000"`
}

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Title       string `validate:"required,max=255"`
	Description string `validate:"max=2000"`
}

// PostInput carries the editable fields of a post. An empty Status means
// draft on create and "unchanged" on update; an empty Thumbnail keeps the
// current image.
type PostInput struct {
	Title       string            `validate:"required,max=255"`
	Description string            `validate:"max=500"`
	Body        string            `validate:"required"`
	CategoryID  uuid.UUID         `validate:"required"`
	Thumbnail   string            `validate:"max=255"`
	Status      models.PostStatus `validate:"omitempty,oneof=draft published"`
	Pinned      bool
	Tags        []string `validate:"max=20,dive,max=100"`
}

// CommentInput carries a new comment. ParentID makes it a reply.
type CommentInput struct {
	ParentID *uuid.UUID
	Body     string `validate:"required,max=5000"`
}
