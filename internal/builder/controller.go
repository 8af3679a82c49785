// Package builder binds author intents to the survey draft and to the
// save/publish collaborator.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"formpulse/internal/apperr"
	"formpulse/internal/draft"
	"formpulse/internal/model"
)

// FocusWindow is how long a freshly added question stays marked for focus.
const FocusWindow = 500 * time.Millisecond

// SurveyAPI is the persistence collaborator.
type SurveyAPI interface {
	CreateSurvey(ctx context.Context, payload model.SavePayload) (*model.Survey, error)
	UpdateSurvey(ctx context.Context, id string, payload model.SavePayload) (*model.Survey, error)
	GetSurvey(ctx context.Context, id string) (*model.Survey, error)
	DeleteSurvey(ctx context.Context, id string) error
}

// Mode tells whether the draft has been persisted yet.
type Mode string

const (
	ModeNew  Mode = "new"
	ModeEdit Mode = "edit"
)

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f once after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Option configures a Controller.
type Option func(*Controller)

// WithAfterFunc replaces time.AfterFunc, mostly for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Controller) { c.afterFunc = fn }
}

// WithFocusWindow overrides FocusWindow.
func WithFocusWindow(d time.Duration) Option {
	return func(c *Controller) { c.focusWindow = d }
}

// Controller owns one draft for the lifetime of a builder screen.
// Its methods may be called from any goroutine.
type Controller struct {
	api         SurveyAPI
	focusWindow time.Duration
	afterFunc   AfterFunc

	mu         sync.Mutex
	store      *draft.Store
	mode       Mode
	generation int // bumped whenever the draft is replaced
	saving     bool

	focusID    string
	focusSeq   int
	focusTimer Timer
	collapsed  map[string]bool
}

// New creates a controller in new-survey mode around store.
func New(store *draft.Store, api SurveyAPI, opts ...Option) *Controller {
	c := &Controller{
		api:         api,
		store:       store,
		mode:        ModeNew,
		focusWindow: FocusWindow,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		collapsed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if store.ID() != "" {
		c.mode = ModeEdit
	}
	return c
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Draft returns a copy of the current document.
func (c *Controller) Draft() model.SurveyDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Edit runs fn against the store under the controller lock. It covers the
// plain field setters that need no extra bookkeeping.
func (c *Controller) Edit(fn func(s *draft.Store) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.store)
}

func (c *Controller) HandleSetTitle(title string) {
	c.mu.Lock()
	c.store.SetTitle(title)
	c.mu.Unlock()
}

func (c *Controller) HandleSetDescription(text string) {
	c.mu.Lock()
	c.store.SetDescription(text)
	c.mu.Unlock()
}

// HandleToggleRequireAuth flips the auth gate and returns the new value.
func (c *Controller) HandleToggleRequireAuth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := !c.store.Snapshot().RequireAuth
	c.store.SetRequireAuth(v)
	return v
}

// HandleSetExpiration sets or clears (nil) the expiration timestamp.
func (c *Controller) HandleSetExpiration(at *time.Time) {
	c.mu.Lock()
	c.store.SetExpiresAt(at)
	c.mu.Unlock()
}

func (c *Controller) HandleSetTheme(theme model.Theme) {
	c.mu.Lock()
	c.store.SetTheme(theme)
	c.mu.Unlock()
}

// HandleApplyPreset switches to a built-in theme.
func (c *Controller) HandleApplyPreset(name string) error {
	theme, ok := model.Preset(name)
	if !ok {
		return apperr.Validation("theme", "unknown theme preset "+name)
	}
	c.HandleSetTheme(theme)
	return nil
}

// HandleAddQuestion appends a question and marks it for one-shot focus.
// It returns the new question's ID.
func (c *Controller) HandleAddQuestion(kind model.QuestionKind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.store.AddQuestion(kind)
	q, _ := c.store.QuestionAt(i)
	c.markFocusLocked(q.ID)
	return q.ID
}

// HandleUpdateQuestion merges patch into the question with id.
func (c *Controller) HandleUpdateQuestion(id string, patch draft.QuestionPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.UpdateQuestionByID(id, patch)
}

// HandleChangeKind switches a question's kind and fills in the defaults the
// new kind needs (a placeholder option, a 1-10 scale).
func (c *Controller) HandleChangeKind(id string, kind model.QuestionKind) error {
	if !kind.Valid() {
		return apperr.Validation("kind", "unknown question kind "+string(kind))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	q, err := c.store.Question(id)
	if err != nil {
		return err
	}
	patch := draft.QuestionPatch{Kind: &kind}
	if model.OptionsRequired(kind) && len(q.Options) == 0 {
		patch.Options = []string{model.PlaceholderOption}
	}
	if kind == model.KindLinearScale && q.ScaleMin >= q.ScaleMax {
		lo, hi := model.DefaultScaleMin, model.DefaultScaleMax
		patch.ScaleMin, patch.ScaleMax = &lo, &hi
	}
	return c.store.UpdateQuestionByID(id, patch)
}

// HandleDeleteQuestion removes a question together with its UI state.
func (c *Controller) HandleDeleteQuestion(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.DeleteQuestionByID(id); err != nil {
		return err
	}
	delete(c.collapsed, id)
	if c.focusID == id {
		c.clearFocusLocked()
	}
	return nil
}

// HandleDuplicateQuestion copies a question below itself and focuses the copy.
func (c *Controller) HandleDuplicateQuestion(id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dupID, err := c.store.DuplicateQuestionByID(id)
	if err != nil {
		return "", err
	}
	c.markFocusLocked(dupID)
	return dupID, nil
}

// HandleReorder applies a drag-and-drop move between two positions.
func (c *Controller) HandleReorder(from, to int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.ReorderQuestions(from, to)
}

// HandleMoveQuestion moves the question with id to position to.
func (c *Controller) HandleMoveQuestion(id string, to int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.MoveQuestion(id, to)
}

// ToggleCollapsed flips the collapsed flag of a question card.
func (c *Controller) ToggleCollapsed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.IndexOf(id) < 0 {
		return false
	}
	c.collapsed[id] = !c.collapsed[id]
	return c.collapsed[id]
}

func (c *Controller) IsCollapsed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collapsed[id]
}

// SetAllCollapsed collapses or expands every card.
func (c *Controller) SetAllCollapsed(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collapsed = make(map[string]bool)
	if !v {
		return
	}
	for _, q := range c.store.Questions() {
		c.collapsed[q.ID] = true
	}
}

// FocusedID is the question that should take input focus, if any.
func (c *Controller) FocusedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focusID
}

func (c *Controller) ShouldFocus(id string) bool {
	return id != "" && c.FocusedID() == id
}

func (c *Controller) markFocusLocked(id string) {
	c.clearFocusLocked()
	c.focusID = id
	c.focusSeq++
	seq := c.focusSeq
	c.focusTimer = c.afterFunc(c.focusWindow, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.focusSeq == seq {
			c.focusID = ""
			c.focusTimer = nil
		}
	})
}

func (c *Controller) clearFocusLocked() {
	if c.focusTimer != nil {
		c.focusTimer.Stop()
		c.focusTimer = nil
	}
	c.focusID = ""
	c.focusSeq++
}

// HandleSave persists the whole draft. A draft without an ID is created and
// the controller switches to edit mode; otherwise it is updated. Only one
// save runs at a time. A failed save leaves the draft untouched.
func (c *Controller) HandleSave(ctx context.Context) (*model.Survey, error) {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return nil, apperr.ErrSaveInProgress
	}
	if strings.TrimSpace(c.store.Title()) == "" {
		c.mu.Unlock()
		return nil, apperr.Validation("title", "please enter a survey title")
	}
	c.saving = true
	payload := c.store.ToSavePayload()
	id := c.store.ID()
	gen := c.generation
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.saving = false
		c.mu.Unlock()
	}()

	var (
		saved *model.Survey
		err   error
	)
	if id == "" {
		saved, err = c.api.CreateSurvey(ctx, payload)
	} else {
		saved, err = c.api.UpdateSurvey(ctx, id, payload)
	}
	if err != nil {
		return nil, apperr.Wrap("save survey", err)
	}
	if saved == nil || saved.ID == "" {
		return nil, &apperr.CollaboratorError{Op: "save survey", Message: "response carried no survey id"}
	}

	c.mu.Lock()
	if c.generation == gen && c.store.ID() == id {
		c.store.SetID(saved.ID)
		c.mode = ModeEdit
	}
	c.mu.Unlock()
	return saved, nil
}

// HandlePublish validates every question, marks the draft active and saves.
// On failure the active flag reverts.
func (c *Controller) HandlePublish(ctx context.Context) (*model.Survey, error) {
	prev, err := c.setActiveForSave(true)
	if err != nil {
		return nil, err
	}
	return c.saveOrRevert(ctx, prev)
}

// HandleUnpublish marks the draft inactive and saves.
func (c *Controller) HandleUnpublish(ctx context.Context) (*model.Survey, error) {
	prev, err := c.setActiveForSave(false)
	if err != nil {
		return nil, err
	}
	return c.saveOrRevert(ctx, prev)
}

func (c *Controller) setActiveForSave(active bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.store.Snapshot().Active
	if active {
		for i, q := range c.store.Questions() {
			if err := q.Validate(); err != nil {
				var ve *apperr.ValidationError
				if errors.As(err, &ve) {
					return prev, &apperr.ValidationError{
						Field:   fmt.Sprintf("questions[%d].%s", i, ve.Field),
						Message: fmt.Sprintf("question %d: %s", i+1, ve.Message),
					}
				}
				return prev, err
			}
		}
	}
	c.store.SetActive(active)
	return prev, nil
}

func (c *Controller) saveOrRevert(ctx context.Context, prev bool) (*model.Survey, error) {
	saved, err := c.HandleSave(ctx)
	if err != nil {
		c.mu.Lock()
		c.store.SetActive(prev)
		c.mu.Unlock()
		return nil, err
	}
	return saved, nil
}

// EnterEdit hydrates the draft from a persisted survey.
func (c *Controller) EnterEdit(ctx context.Context, id string) error {
	survey, err := c.api.GetSurvey(ctx, id)
	if err != nil {
		return apperr.Wrap("load survey", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.LoadFrom(survey)
	c.resetTransientLocked()
	c.mode = ModeEdit
	return nil
}

// HandleNew discards the draft and starts an empty one.
func (c *Controller) HandleNew() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Reset()
	c.resetTransientLocked()
	c.mode = ModeNew
}

// HandleDelete deletes the persisted survey and starts a new draft.
func (c *Controller) HandleDelete(ctx context.Context) error {
	c.mu.Lock()
	id := c.store.ID()
	c.mu.Unlock()
	if id == "" {
		return apperr.ErrInvalidState
	}
	if err := c.api.DeleteSurvey(ctx, id); err != nil {
		return apperr.Wrap("delete survey", err)
	}
	c.HandleNew()
	return nil
}

// ShareLink is the respondent URL of the saved survey.
func (c *Controller) ShareLink(baseURL string) (string, error) {
	c.mu.Lock()
	id := c.store.ID()
	c.mu.Unlock()
	if id == "" {
		return "", apperr.Validation("id", "save the survey before sharing it")
	}
	return strings.TrimRight(baseURL, "/") + "/survey/" + id, nil
}

// Close stops the pending focus timer. Call it when the builder goes away.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearFocusLocked()
}

func (c *Controller) resetTransientLocked() {
	c.clearFocusLocked()
	c.collapsed = make(map[string]bool)
	c.generation++
}
