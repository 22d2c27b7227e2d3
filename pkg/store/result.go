package store

// resultKind tags a callback Result.
type resultKind uint8

const (
	resultContinue resultKind = iota
	resultUnsubscribe
	resultArm
)

// Result tells the store what to do with a subscription after its callback ran.
type Result struct {
	kind  resultKind
	token *Token
}

// Continue keeps the subscription active.
func Continue() Result {
	return Result{kind: resultContinue}
}

// Unsubscribe removes the subscription after the current call.
func Unsubscribe() Result {
	return Result{kind: resultUnsubscribe}
}

// Arm keeps the subscription active until t is cancelled.
// Arming an already cancelled token removes the subscription immediately.
func Arm(t *Token) Result {
	if t == nil {
		return Continue()
	}
	return Result{kind: resultArm, token: t}
}

// Renew is a subscription callback. first is true only for the synchronous
// call made by Watch.
type Renew func(n Node, first bool) Result

// Token is a synchronous cancellation token.
// Cancel runs every registered listener before returning.
type Token struct {
	cancelled bool
	listeners []*tokenListener
}

type tokenListener struct {
	fn      func()
	removed bool
}

// NewToken creates an uncancelled token.
func NewToken() *Token {
	return &Token{}
}

// Cancel marks the token cancelled and runs its listeners in registration order.
// Calling Cancel more than once has no further effect.
func (t *Token) Cancel() {
	if t.cancelled {
		return
	}
	t.cancelled = true
	ls := t.listeners
	t.listeners = nil
	for _, l := range ls {
		if !l.removed {
			l.fn()
		}
	}
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.cancelled
}

// OnCancel registers fn to run when the token is cancelled. If the token is
// already cancelled fn runs immediately. The returned function detaches fn.
func (t *Token) OnCancel(fn func()) (stop func()) {
	if t.cancelled {
		fn()
		return func() {}
	}
	l := &tokenListener{fn: fn}
	t.listeners = append(t.listeners, l)
	return func() {
		l.removed = true
	}
}
