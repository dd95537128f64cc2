package bot

import (
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/core/workflow/forms"
	"context"
	"errors"
	"strings"
)

const skipWord = "skip"

// Question is one prompt of a Form.
type Question struct {
	// Field is the form field the answer feeds; validation errors naming it
	// cause the question to be asked again.
	Field  string
	Prompt string

	Choices []string
	// ChoicesFor overrides Choices with buttons derived from earlier answers.
	ChoicesFor func(a Answers) []string

	File     bool // expects a photo or document
	Optional bool // "skip" leaves the answer empty

	// When gates the question on earlier answers. Nil means always.
	When func(a Answers) bool
	// OnAnswer runs right after the answer is stored.
	OnAnswer func(ctx context.Context, a Answers) error
}

// Answers collects the replies of a Form.
type Answers struct {
	text  map[string]string
	files map[string]*forms.Attachment
}

func newAnswers() Answers {
	return Answers{text: make(map[string]string), files: make(map[string]*forms.Attachment)}
}

func (a Answers) Get(field string) string { return a.text[field] }

func (a Answers) File(field string) *forms.Attachment { return a.files[field] }

func (a Answers) has(field string) bool {
	if _, ok := a.text[field]; ok {
		return true
	}
	_, ok := a.files[field]
	return ok
}

func (a Answers) forget(field string) {
	delete(a.text, field)
	delete(a.files, field)
}

// Form asks its questions one message at a time and calls submit once
// every applicable question is answered.
type Form struct {
	questions []Question
	submit    func(ctx context.Context, a Answers) error
	answers   Answers
	current   *Question
	last      string
}

func NewForm(submit func(ctx context.Context, a Answers) error, questions ...Question) *Form {
	return &Form{questions: questions, submit: submit, answers: newAnswers()}
}

func (f *Form) next() *Question {
	for i := range f.questions {
		q := &f.questions[i]
		if q.When != nil && !q.When(f.answers) {
			continue
		}
		if !f.answers.has(q.Field) {
			return q
		}
	}
	return nil
}

// Start asks the first question, or submits right away when no question
// applies. It reports true once submit succeeded.
func (f *Form) Start(ctx context.Context, c *Chat) (bool, error) {
	return f.advance(ctx, c)
}

// Reset forgets every answer.
func (f *Form) Reset() {
	f.answers = newAnswers()
	f.current = nil
	f.last = ""
}

// prompt asks the next unanswered question. It reports false when none is left.
func (f *Form) prompt(ctx context.Context, c *Chat) (bool, error) {
	q := f.next()
	f.current = q
	if q == nil {
		return false, nil
	}
	text := q.Prompt
	if q.Optional {
		text += "\n(Send \"skip\" to leave it empty.)"
	}
	choices := q.Choices
	if q.ChoicesFor != nil {
		choices = q.ChoicesFor(f.answers)
	}
	return true, c.Ask(ctx, text, choices...)
}

// Feed stores in as the answer to the pending question, then asks the next
// one or submits. It reports true once submit succeeded.
func (f *Form) Feed(ctx context.Context, c *Chat, in *ports.BotUpdate) (bool, error) {
	q := f.current
	if q == nil {
		return f.advance(ctx, c)
	}

	text := strings.TrimSpace(in.Text)
	skipped := q.Optional && strings.EqualFold(text, skipWord)
	switch {
	case q.File && in.File != nil:
		f.answers.files[q.Field] = attachmentOf(in.File)
	case q.File && skipped:
		f.answers.files[q.Field] = nil
	case q.File:
		hint := "Please send a photo or a PDF document."
		if q.Optional {
			hint += " Send \"skip\" to continue without one."
		}
		return false, c.Say(ctx, hint)
	case skipped:
		f.answers.text[q.Field] = ""
	default:
		f.answers.text[q.Field] = text
	}
	f.last = q.Field

	if q.OnAnswer != nil {
		if err := q.OnAnswer(ctx, f.answers); err != nil {
			if handled, herr := f.recover(ctx, c, err); !handled {
				return false, herr
			}
		}
	}
	return f.advance(ctx, c)
}

// recover reports an answer-time error and drops the answers it names.
// Cooldown errors keep the answer: a code is already on its way.
func (f *Form) recover(ctx context.Context, c *Chat, err error) (bool, error) {
	ve, isValidation := forms.AsValidation(err)
	switch {
	case isValidation:
		for _, fe := range ve.Fields {
			f.answers.forget(fe.Field)
		}
	case errors.Is(err, workflow.ErrCooldownActive):
	default:
		return false, err
	}
	return true, c.Say(ctx, Describe(err))
}

func (f *Form) advance(ctx context.Context, c *Chat) (bool, error) {
	if asked, err := f.prompt(ctx, c); asked || err != nil {
		return false, err
	}

	err := f.submit(ctx, f.answers)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.Canceled) {
		return false, err
	}

	ve, isValidation := forms.AsValidation(err)
	if !isValidation {
		// Let the user answer the last question again.
		if f.last == "" {
			return false, err
		}
		f.answers.forget(f.last)
		if sayErr := c.Say(ctx, Describe(err)); sayErr != nil {
			return false, sayErr
		}
		_, perr := f.prompt(ctx, c)
		return false, perr
	}

	forgot := false
	for _, fe := range ve.Fields {
		if f.answers.has(fe.Field) {
			f.answers.forget(fe.Field)
			forgot = true
		}
	}
	if !forgot {
		return false, errors.Join(err, ErrFormStuck)
	}
	if sayErr := c.Say(ctx, Describe(err)); sayErr != nil {
		return false, sayErr
	}
	_, perr := f.prompt(ctx, c)
	return false, perr
}

func attachmentOf(fi *ports.FileInfo) *forms.Attachment {
	name := fi.FileName
	if name == "" {
		name = fi.FileID + ".jpg"
	}
	contentType := fi.MimeType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &forms.Attachment{Name: name, Size: fi.FileSize, ContentType: contentType}
}

// Stages runs forms one after another as a single Flow.
type Stages struct {
	forms   []*Form
	current int
	// back steps the underlying controller back one stage. Nil disables /back.
	back    func() error
	onClose func()
}

func NewStages(back func() error, onClose func(), stages ...*Form) *Stages {
	return &Stages{forms: stages, back: back, onClose: onClose}
}

func (s *Stages) Start(ctx context.Context, c *Chat) error {
	_, err := s.enter(ctx, c)
	return err
}

func (s *Stages) Handle(ctx context.Context, c *Chat, in *ports.BotUpdate) (bool, error) {
	done, err := s.forms[s.current].Feed(ctx, c, in)
	if err != nil || !done {
		return false, err
	}
	return s.next(ctx, c)
}

// StepBack rewinds to the start of the previous stage.
func (s *Stages) StepBack(ctx context.Context, c *Chat) error {
	if s.back == nil || s.current == 0 {
		return workflow.ErrWrongStep
	}
	if err := s.back(); err != nil {
		return err
	}
	s.forms[s.current].Reset()
	s.current--
	s.forms[s.current].Reset()
	_, err := s.enter(ctx, c)
	return err
}

func (s *Stages) Close() {
	if s.onClose != nil {
		s.onClose()
	}
}

// enter starts the current stage, moving on while stages submit without asking.
func (s *Stages) enter(ctx context.Context, c *Chat) (bool, error) {
	done, err := s.forms[s.current].Start(ctx, c)
	if err != nil || !done {
		return false, err
	}
	return s.next(ctx, c)
}

func (s *Stages) next(ctx context.Context, c *Chat) (bool, error) {
	if s.current == len(s.forms)-1 {
		return true, nil
	}
	s.current++
	return s.enter(ctx, c)
}
