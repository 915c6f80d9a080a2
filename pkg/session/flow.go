package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Flow timing defaults.
const (
	DefaultNoticeTTL     = 3 * time.Second
	DefaultRedirectDelay = time.Second
)

// SuccessMessage is shown after a successful login.
const SuccessMessage = "login successful, redirecting..."

// ErrSubmitInFlight rejects a submission while another one is running.
var ErrSubmitInFlight = errors.New("session: a login request is already in flight")

// FieldErrors maps a form field ("username", "password") to its problem.
type FieldErrors map[string]string

// Validate checks that both credentials are present after trimming.
func Validate(creds Credentials) FieldErrors {
	fields := FieldErrors{}
	if strings.TrimSpace(creds.Username) == "" {
		fields["username"] = "username is required"
	}
	if strings.TrimSpace(creds.Password) == "" {
		fields["password"] = "password is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ResultKind tags a Result.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultInvalid
	ResultFailure
	ResultBusy
)

// Result is the outcome of one Submit.
type Result struct {
	Kind       ResultKind
	Fields     FieldErrors
	Reason     Reason
	Message    string
	RedirectTo string
	Err        error
}

// NoticeKind separates success from error notices.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notice is the single message currently shown to the user.
type Notice struct {
	Kind    NoticeKind
	Message string
	Reason  Reason
}

// FlowOptions tunes a Flow. Zero values use the defaults.
type FlowOptions struct {
	NoticeTTL     time.Duration
	RedirectDelay time.Duration
}

// Flow drives the login form: validation, submission, notices and the
// delayed redirect after success.
type Flow struct {
	store         *Store
	noticeTTL     time.Duration
	redirectDelay time.Duration
	redirects     chan string

	mu          sync.Mutex
	busy        bool
	notice      *Notice
	noticeSeq   uint64
	noticeTimer *time.Timer
	redirTimer  *time.Timer
}

// NewFlow returns a login flow bound to store.
func NewFlow(store *Store, opts FlowOptions) *Flow {
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	return &Flow{
		store:         store,
		noticeTTL:     opts.NoticeTTL,
		redirectDelay: opts.RedirectDelay,
		redirects:     make(chan string, 1),
	}
}

// Submit validates creds and, when valid, logs in through the store.
func (f *Flow) Submit(ctx context.Context, creds Credentials) Result {
	if fields := Validate(creds); fields != nil {
		return Result{Kind: ResultInvalid, Fields: fields}
	}

	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return Result{Kind: ResultBusy, Err: ErrSubmitInFlight}
	}
	f.busy = true
	f.mu.Unlock()

	creds.Username = strings.TrimSpace(creds.Username)
	err := f.store.Login(ctx, creds)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		reason, msg := Describe(err)
		f.showLocked(Notice{Kind: NoticeError, Message: msg, Reason: reason})
		return Result{Kind: ResultFailure, Reason: reason, Message: msg, Err: err}
	}
	f.showLocked(Notice{Kind: NoticeSuccess, Message: SuccessMessage})
	f.scheduleRedirectLocked(RouteDashboard)
	return Result{Kind: ResultSuccess, Message: SuccessMessage, RedirectTo: RouteDashboard}
}

// Busy reports whether a submission is in flight.
func (f *Flow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Notice returns the visible notice, if any.
func (f *Flow) Notice() (Notice, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notice == nil {
		return Notice{}, false
	}
	return *f.notice, true
}

// DismissNotice hides the current notice immediately.
func (f *Flow) DismissNotice() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noticeSeq++
	f.notice = nil
	if f.noticeTimer != nil {
		f.noticeTimer.Stop()
	}
}

// Redirects delivers the route to navigate to once the post-login delay
// has elapsed.
func (f *Flow) Redirects() <-chan string {
	return f.redirects
}

// Close stops pending timers.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noticeTimer != nil {
		f.noticeTimer.Stop()
	}
	if f.redirTimer != nil {
		f.redirTimer.Stop()
	}
}

func (f *Flow) showLocked(n Notice) {
	f.noticeSeq++
	seq := f.noticeSeq
	f.notice = &n
	if f.noticeTimer != nil {
		f.noticeTimer.Stop()
	}
	f.noticeTimer = time.AfterFunc(f.noticeTTL, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.noticeSeq == seq {
			f.notice = nil
		}
	})
}

func (f *Flow) scheduleRedirectLocked(route string) {
	if f.redirTimer != nil {
		f.redirTimer.Stop()
	}
	f.redirTimer = time.AfterFunc(f.redirectDelay, func() {
		select {
		case f.redirects <- route:
		default:
		}
	})
}
