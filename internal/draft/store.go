// Package draft holds the in-memory document for a survey under
// construction. A Store is owned by one builder: it is created when the
// author enters the builder and discarded when they leave.
package draft

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"formpulse/internal/apperr"
	"formpulse/internal/model"
)

// Store is the mutable survey draft. It is not safe for concurrent use.
type Store struct {
	doc   model.SurveyDraft
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid-based question ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New creates an empty draft.
func New(opts ...Option) *Store {
	s := &Store{
		doc:   model.NewSurveyDraft(),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QuestionPatch carries the fields UpdateQuestion merges. Nil fields are
// left untouched; a non-nil empty Options clears the list.
type QuestionPatch struct {
	Kind        *model.QuestionKind
	Prompt      *string
	Description *string
	Options     []string
	ScaleMin    *int
	ScaleMax    *int
	Required    *bool
}

func (p QuestionPatch) apply(q *model.Question) {
	if p.Kind != nil {
		q.Kind = *p.Kind
	}
	if p.Prompt != nil {
		q.Prompt = *p.Prompt
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Options != nil {
		q.Options = append([]string{}, p.Options...)
	}
	if p.ScaleMin != nil {
		q.ScaleMin = *p.ScaleMin
	}
	if p.ScaleMax != nil {
		q.ScaleMax = *p.ScaleMax
	}
	if p.Required != nil {
		q.Required = *p.Required
	}
}

// Snapshot returns a deep copy of the current draft.
func (s *Store) Snapshot() model.SurveyDraft {
	d := s.doc
	d.Questions = s.Questions()
	if d.Theme != nil {
		t := *d.Theme
		d.Theme = &t
	}
	if d.ExpiresAt != nil {
		t := *d.ExpiresAt
		d.ExpiresAt = &t
	}
	return d
}

func (s *Store) ID() string { return s.doc.ID }

// SetID records the identifier assigned by the first successful save.
func (s *Store) SetID(id string) { s.doc.ID = id }

func (s *Store) Title() string { return s.doc.Title }

func (s *Store) Len() int { return len(s.doc.Questions) }

// Questions returns a copy of the ordered question list.
func (s *Store) Questions() []model.Question {
	out := make([]model.Question, len(s.doc.Questions))
	for i, q := range s.doc.Questions {
		out[i] = q.Clone()
	}
	return out
}

// QuestionAt returns a copy of the question at index.
func (s *Store) QuestionAt(index int) (model.Question, error) {
	if err := s.checkIndex(index); err != nil {
		return model.Question{}, err
	}
	return s.doc.Questions[index].Clone(), nil
}

func (s *Store) SetTitle(text string)       { s.doc.Title = text }
func (s *Store) SetDescription(text string) { s.doc.Description = text }
func (s *Store) SetRequireAuth(v bool)      { s.doc.RequireAuth = v }
func (s *Store) SetActive(v bool)           { s.doc.Active = v }
func (s *Store) SetPreventDuplicates(v bool) {
	s.doc.PreventDuplicates = v
}

func (s *Store) SetTheme(theme model.Theme) {
	s.doc.Theme = &theme
}

// SetExpiresAt sets the expiration timestamp; nil disables expiration.
func (s *Store) SetExpiresAt(at *time.Time) {
	if at == nil {
		s.doc.ExpiresAt = nil
		return
	}
	t := *at
	s.doc.ExpiresAt = &t
}

func (s *Store) SetExpirationAction(a model.ExpirationAction) { s.doc.ExpirationAction = a }
func (s *Store) SetExpirationMessage(msg string)              { s.doc.ExpirationMessage = msg }
func (s *Store) SetRedirectURL(url string)                    { s.doc.RedirectURL = url }

// AddQuestion appends a question with kind defaults and returns its index.
func (s *Store) AddQuestion(kind model.QuestionKind) int {
	s.doc.Questions = append(s.doc.Questions, model.NewQuestion(s.newID(), kind))
	return len(s.doc.Questions) - 1
}

// UpdateQuestion merges patch into the question at index.
func (s *Store) UpdateQuestion(index int, patch QuestionPatch) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	patch.apply(&s.doc.Questions[index])
	return nil
}

// DeleteQuestion removes the question at index; later questions shift down.
func (s *Store) DeleteQuestion(index int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	qs := s.doc.Questions
	s.doc.Questions = append(qs[:index:index], qs[index+1:]...)
	return nil
}

// DuplicateQuestion inserts a copy of the question at index right after it
// and returns the copy's index. The copy gets a fresh ID.
func (s *Store) DuplicateQuestion(index int) (int, error) {
	if err := s.checkIndex(index); err != nil {
		return -1, err
	}
	dup := s.doc.Questions[index].Clone()
	dup.ID = s.newID()

	qs := make([]model.Question, 0, len(s.doc.Questions)+1)
	qs = append(qs, s.doc.Questions[:index+1]...)
	qs = append(qs, dup)
	qs = append(qs, s.doc.Questions[index+1:]...)
	s.doc.Questions = qs
	return index + 1, nil
}

// ReorderQuestions moves the question at from to position to.
func (s *Store) ReorderQuestions(from, to int) error {
	if err := s.checkIndex(from); err != nil {
		return err
	}
	if err := s.checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	qs := s.doc.Questions
	moved := qs[from]
	if from < to {
		copy(qs[from:to], qs[from+1:to+1])
	} else {
		copy(qs[to+1:from+1], qs[to:from])
	}
	qs[to] = moved
	return nil
}

// IndexOf returns the current position of the question with id, or -1.
func (s *Store) IndexOf(id string) int {
	for i, q := range s.doc.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexByID(id string) (int, error) {
	i := s.IndexOf(id)
	if i < 0 {
		return -1, fmt.Errorf("question %s: %w", id, apperr.ErrNotFound)
	}
	return i, nil
}

// Question returns a copy of the question with id.
func (s *Store) Question(id string) (model.Question, error) {
	i, err := s.indexByID(id)
	if err != nil {
		return model.Question{}, err
	}
	return s.doc.Questions[i].Clone(), nil
}

func (s *Store) UpdateQuestionByID(id string, patch QuestionPatch) error {
	i, err := s.indexByID(id)
	if err != nil {
		return err
	}
	return s.UpdateQuestion(i, patch)
}

func (s *Store) DeleteQuestionByID(id string) error {
	i, err := s.indexByID(id)
	if err != nil {
		return err
	}
	return s.DeleteQuestion(i)
}

// DuplicateQuestionByID duplicates the question and returns the copy's ID.
func (s *Store) DuplicateQuestionByID(id string) (string, error) {
	i, err := s.indexByID(id)
	if err != nil {
		return "", err
	}
	j, err := s.DuplicateQuestion(i)
	if err != nil {
		return "", err
	}
	return s.doc.Questions[j].ID, nil
}

// MoveQuestion moves the question with id to position to.
func (s *Store) MoveQuestion(id string, to int) error {
	i, err := s.indexByID(id)
	if err != nil {
		return err
	}
	return s.ReorderQuestions(i, to)
}

// AddOption appends a numbered placeholder option and returns its index.
func (s *Store) AddOption(index int) (int, error) {
	if err := s.checkIndex(index); err != nil {
		return -1, err
	}
	q := &s.doc.Questions[index]
	q.Options = append(q.Options, "Option "+strconv.Itoa(len(q.Options)+1))
	return len(q.Options) - 1, nil
}

func (s *Store) UpdateOption(index, option int, text string) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	q := &s.doc.Questions[index]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("option %d: %w", option, apperr.ErrIndexOutOfRange)
	}
	q.Options[option] = text
	return nil
}

// RemoveOption deletes an option. Choice questions keep at least one.
func (s *Store) RemoveOption(index, option int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	q := &s.doc.Questions[index]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("option %d: %w", option, apperr.ErrIndexOutOfRange)
	}
	if model.OptionsRequired(q.Kind) && len(q.Options) == 1 {
		return apperr.Validation("options", "a choice question needs at least one option")
	}
	q.Options = append(q.Options[:option:option], q.Options[option+1:]...)
	return nil
}

// LoadFrom replaces the draft with a persisted survey (edit mode).
// Questions stored without an ID receive one.
func (s *Store) LoadFrom(survey *model.Survey) {
	d := model.NewSurveyDraft()
	d.ID = survey.ID
	d.Title = survey.Title
	d.Description = survey.Description
	d.RequireAuth = survey.RequireAuth
	d.Active = survey.Active
	d.PreventDuplicates = survey.PreventDuplicates
	if survey.Theme != nil {
		t := *survey.Theme
		d.Theme = &t
	}
	if survey.ExpiresAt != nil {
		t := *survey.ExpiresAt
		d.ExpiresAt = &t
	}
	if survey.ExpirationAction != "" {
		d.ExpirationAction = survey.ExpirationAction
	}
	if survey.ExpirationMessage != "" {
		d.ExpirationMessage = survey.ExpirationMessage
	}
	d.RedirectURL = survey.RedirectURL

	for _, q := range survey.Questions {
		q = q.Clone()
		if q.ID == "" {
			q.ID = s.newID()
		}
		d.Questions = append(d.Questions, q)
	}
	s.doc = d
}

// Reset restores every field to its default and detaches the ID.
func (s *Store) Reset() {
	s.doc = model.NewSurveyDraft()
}

// ToSavePayload builds the exact body sent to the create/update call.
func (s *Store) ToSavePayload() model.SavePayload {
	p := model.SavePayload{
		Title:             s.doc.Title,
		Description:       s.doc.Description,
		Questions:         s.Questions(),
		Theme:             s.doc.EffectiveTheme(),
		RequireAuth:       s.doc.RequireAuth,
		Active:            s.doc.Active,
		PreventDuplicates: s.doc.PreventDuplicates,
		ExpirationAction:  s.doc.ExpirationAction,
		ExpirationMessage: s.doc.ExpirationMessage,
		RedirectURL:       s.doc.RedirectURL,
	}
	if s.doc.ExpiresAt != nil {
		iso := s.doc.ExpiresAt.UTC().Format(model.ISOTimeLayout)
		p.ExpirationDate = &iso
	}
	return p
}

func (s *Store) checkIndex(index int) error {
	if index < 0 || index >= len(s.doc.Questions) {
		return fmt.Errorf("%w: %d (have %d)", apperr.ErrIndexOutOfRange, index, len(s.doc.Questions))
	}
	return nil
}
