package notification

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestToastString(t *testing.T) {
	tests := []struct {
		toast Toast
		want  string
	}{
		{Succeeded("Note added", ""), "✓ Note added"},
		{Failed("Failed to add note", errors.New("boom")), "✗ Failed to add note: boom"},
		{InProgress("Loading"), "… Loading"},
	}
	for _, tt := range tests {
		if got := tt.toast.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestWriterNotifierSkipsAnimated(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf, false)

	n.Notify(InProgress("Saving"))
	n.Notify(Succeeded("Saved", "Buy milk"))

	out := buf.String()
	if strings.Contains(out, "Saving") {
		t.Errorf("animated toast should be skipped, got %q", out)
	}
	if out != "✓ Saved: Buy milk\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMultiAndFunc(t *testing.T) {
	var got []Style
	rec := Func(func(t Toast) { got = append(got, t.Style) })

	Multi(rec, nil, rec).Notify(Failed("x", nil))

	if len(got) != 2 || got[0] != Failure {
		t.Errorf("forwarded = %v", got)
	}
}

// =============================================================================
// Desktop Notifier
// =============================================================================

func TestDesktopNotifierLinux(t *testing.T) {
	var cmd string
	var args []string
	exec := &MockCommandExecutor{ExecuteFunc: func(c string, a ...string) error {
		cmd, args = c, a
		return nil
	}}

	n := NewDesktopNotifier(WithPlatform("linux"), WithCommandExecutor(exec))
	n.Notify(Failed("Update failed", errors.New("404")))

	if cmd != "notify-send" {
		t.Fatalf("cmd = %q, want notify-send", cmd)
	}
	if len(args) != 3 || args[0] != "--urgency=critical" || args[1] != "ppv: Update failed" || args[2] != "404" {
		t.Errorf("args = %v", args)
	}
}

func TestDesktopNotifierSkipsAnimated(t *testing.T) {
	called := false
	exec := &MockCommandExecutor{ExecuteFunc: func(string, ...string) error {
		called = true
		return nil
	}}

	NewDesktopNotifier(WithPlatform("linux"), WithCommandExecutor(exec)).Notify(InProgress("Loading"))
	if called {
		t.Error("animated toast should not reach the OS")
	}
}

// TestDesktopNotifierEscaping verifies quotes cannot break out of the script
func TestDesktopNotifierEscaping(t *testing.T) {
	var script string
	exec := &MockCommandExecutor{ExecuteFunc: func(_ string, a ...string) error {
		script = a[len(a)-1]
		return nil
	}}

	NewDesktopNotifier(WithPlatform("darwin"), WithCommandExecutor(exec)).
		Notify(Succeeded("Done", `say "hi" \ bye`))

	if !strings.Contains(script, `say \"hi\" \\ bye`) {
		t.Errorf("script not escaped: %s", script)
	}

	if got := escapePowerShell("$x `y` \"z\""); got != "`$x ``y`` `\"z`\"" {
		t.Errorf("escapePowerShell() = %q", got)
	}
}

// TestDesktopNotifierErrorIsSwallowed verifies command failures do not panic or propagate
func TestDesktopNotifierErrorIsSwallowed(t *testing.T) {
	exec := &MockCommandExecutor{ExecuteFunc: func(string, ...string) error { return errors.New("no notify-send") }}
	NewDesktopNotifier(WithPlatform("linux"), WithCommandExecutor(exec)).Notify(Succeeded("x", ""))
	NewDesktopNotifier(WithPlatform("plan9"), WithCommandExecutor(exec)).Notify(Succeeded("x", ""))
}
