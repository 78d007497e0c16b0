// Package notification reports the outcome of user actions as short toasts.
package notification

import (
	"fmt"
	"io"
	"sync"
)

// Style is the visual kind of a toast
type Style int

const (
	// Success marks a completed action
	Success Style = iota
	// Failure marks a failed action; Message carries the error text
	Failure
	// Animated marks an action in progress
	Animated
)

// String returns the style name
func (s Style) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Animated:
		return "animated"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

// Icon returns the glyph shown before the toast title
func (s Style) Icon() string {
	switch s {
	case Success:
		return "✓"
	case Failure:
		return "✗"
	default:
		return "…"
	}
}

// Toast is a transient notification
type Toast struct {
	Style   Style
	Title   string
	Message string
}

// String renders the toast on one line
func (t Toast) String() string {
	if t.Message == "" {
		return t.Style.Icon() + " " + t.Title
	}
	return fmt.Sprintf("%s %s: %s", t.Style.Icon(), t.Title, t.Message)
}

// Succeeded builds a success toast
func Succeeded(title, message string) Toast {
	return Toast{Style: Success, Title: title, Message: message}
}

// Failed builds a failure toast from err
func Failed(title string, err error) Toast {
	t := Toast{Style: Failure, Title: title}
	if err != nil {
		t.Message = err.Error()
	}
	return t
}

// InProgress builds an animated toast
func InProgress(title string) Toast {
	return Toast{Style: Animated, Title: title}
}

// Notifier displays toasts
type Notifier interface {
	Notify(t Toast)
}

// Func adapts a function to Notifier
type Func func(Toast)

// Notify calls f(t)
func (f Func) Notify(t Toast) { f(t) }

// writerNotifier prints toasts as lines
type writerNotifier struct {
	mu       sync.Mutex
	out      io.Writer
	animated bool
}

// NewWriterNotifier prints each toast on its own line. Animated toasts are
// printed only when showAnimated is set.
func NewWriterNotifier(out io.Writer, showAnimated bool) Notifier {
	return &writerNotifier{out: out, animated: showAnimated}
}

func (w *writerNotifier) Notify(t Toast) {
	if t.Style == Animated && !w.animated {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.out, t.String())
}

// multi fans a toast out to several notifiers
type multi []Notifier

// Multi returns a Notifier that forwards to every non-nil notifier
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multi) Notify(t Toast) {
	for _, n := range m {
		n.Notify(t)
	}
}

// Discard drops every toast
var Discard Notifier = Func(func(Toast) {})
