package social

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
)

const (
	minPasswordLength = 8
	defaultUserImage  = "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcRGjt2yc1eucAzdqAa7ThZTYxtpMXXem3J16Q&usqp=CAU"
)

// RegisterUserInput holds the fields accepted when creating an account.
type RegisterUserInput struct {
	ID          string   `json:"id,omitempty"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Country     string   `json:"country,omitempty"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Instruments []string `json:"instruments,omitempty"`
	Img         string   `json:"img,omitempty"`
}

// ProfileUpdate lists the profile fields a user may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Username    *string   `json:"username,omitempty"`
	FirstName   *string   `json:"firstName,omitempty"`
	LastName    *string   `json:"lastName,omitempty"`
	Img         *string   `json:"img,omitempty"`
	Country     *string   `json:"country,omitempty"`
	Description *string   `json:"description,omitempty"`
	Genres      *[]string `json:"genres,omitempty"`
	Instruments *[]string `json:"instruments,omitempty"`
}

// RegisterUser creates a user with a hashed password. Email addresses are
// unique after normalisation. The uniqueness check is a lookup followed by
// an insert, so two concurrent registrations of one address can both pass.
func (e *Engine) RegisterUser(ctx context.Context, in RegisterUserInput) (user models.User, err error) {
	ctx, span := logging.StartSpan(ctx, "social.RegisterUser")
	defer func() { span.End(err) }()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return models.User{}, invalidf("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return models.User{}, invalidf("password must be at least %d characters", minPasswordLength)
	}
	required := map[string]string{
		"username":  in.Username,
		"firstName": in.FirstName,
		"lastName":  in.LastName,
	}
	for _, name := range []string{"username", "firstName", "lastName"} {
		if strings.TrimSpace(required[name]) == "" {
			return models.User{}, invalidf("%s is required", name)
		}
	}

	taken, err := e.store.FindIDs(ctx, models.KindUser, "email", email)
	if err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if len(taken) > 0 {
		return models.User{}, conflictf("email %s is already registered", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), e.passwordCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	img := strings.TrimSpace(in.Img)
	if img == "" {
		img = defaultUserImage
	}
	now := e.now().UTC()
	user = models.User{
		ID:          in.ID,
		Email:       email,
		Password:    string(hash),
		Username:    strings.TrimSpace(in.Username),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Country:     strings.TrimSpace(in.Country),
		Description: strings.TrimSpace(in.Description),
		Genres:      cleanList(in.Genres),
		Instruments: cleanList(in.Instruments),
		Img:         img,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc, err := newDocument(models.KindUser, user)
	if err != nil {
		return models.User{}, err
	}

	id, err := e.create(ctx, newProgress("RegisterUser"), models.KindUser, doc, nil)
	if err != nil {
		return models.User{}, err
	}
	user.ID = id
	return redactUser(user), nil
}

// UpdateProfile applies the non-nil fields of update in a single write.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (user models.User, err error) {
	ctx, span := logging.StartSpan(ctx, "social.UpdateProfile")
	defer func() { span.End(err) }()

	if err := requireID("user id", userID); err != nil {
		return models.User{}, err
	}

	set := make(map[string]any)
	text := map[string]*string{
		"username":    update.Username,
		"firstName":   update.FirstName,
		"lastName":    update.LastName,
		"img":         update.Img,
		"country":     update.Country,
		"description": update.Description,
	}
	for field, value := range text {
		if value == nil {
			continue
		}
		v := strings.TrimSpace(*value)
		if v == "" && (field == "username" || field == "firstName" || field == "lastName") {
			return models.User{}, invalidf("%s must not be empty", field)
		}
		set[field] = v
	}
	if update.Genres != nil {
		set["genres"] = cleanList(*update.Genres)
	}
	if update.Instruments != nil {
		set["instruments"] = cleanList(*update.Instruments)
	}
	if len(set) == 0 {
		return models.User{}, invalidf("no profile fields to update")
	}
	set["updatedAt"] = e.now().UTC().Format(time.RFC3339Nano)

	err = e.apply(ctx, newProgress("UpdateProfile"), step{kind: models.KindUser, id: userID, set: set})
	if err != nil {
		return models.User{}, err
	}
	user, err = e.getUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	return redactUser(user), nil
}

// GetUser returns a user without the password hash.
func (e *Engine) GetUser(ctx context.Context, userID string) (models.User, error) {
	if err := requireID("user id", userID); err != nil {
		return models.User{}, err
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	return redactUser(user), nil
}

// ListUsers returns up to limit users; limit <= 0 returns all of them.
func (e *Engine) ListUsers(ctx context.Context, limit int) ([]models.User, error) {
	docs, err := e.store.List(ctx, models.KindUser, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		var user models.User
		if err := models.FromDocument(doc, &user); err != nil {
			return nil, err
		}
		users = append(users, redactUser(user))
	}
	return users, nil
}

// DeleteUser deletes the user's reviews and samples, removes the user from
// friends, requests and band membership, and deletes the user last.
func (e *Engine) DeleteUser(ctx context.Context, userID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.DeleteUser")
	defer func() { span.End(err) }()

	if err := requireID("user id", userID); err != nil {
		return err
	}
	if err := e.exists(ctx, models.KindUser, userID); err != nil {
		return err
	}
	return e.purge(ctx, newProgress("DeleteUser"), models.KindUser, userID)
}

func (e *Engine) getUser(ctx context.Context, userID string) (models.User, error) {
	doc, err := e.load(ctx, models.KindUser, userID)
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	if err := models.FromDocument(doc, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func redactUser(u models.User) models.User {
	u.Password = ""
	return u
}
