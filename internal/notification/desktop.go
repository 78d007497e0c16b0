package notification

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"ppv/internal/utils"
)

// CommandExecutor is the interface for executing system commands
type CommandExecutor interface {
	Execute(cmd string, args ...string) error
}

// MockCommandExecutor is a mock implementation of CommandExecutor for testing
type MockCommandExecutor struct {
	ExecuteFunc func(cmd string, args ...string) error
}

// Execute implements CommandExecutor
func (m *MockCommandExecutor) Execute(cmd string, args ...string) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(cmd, args...)
	}
	return nil
}

// DesktopOption configures the desktop notifier
type DesktopOption func(*desktopNotifier)

// WithCommandExecutor sets a custom command executor
func WithCommandExecutor(executor CommandExecutor) DesktopOption {
	return func(d *desktopNotifier) { d.executor = executor }
}

// WithPlatform sets the platform used to pick the notification command
func WithPlatform(platform string) DesktopOption {
	return func(d *desktopNotifier) { d.platform = platform }
}

// desktopNotifier shows finished toasts with the OS notification system
type desktopNotifier struct {
	executor CommandExecutor
	platform string
}

// NewDesktopNotifier creates a notifier backed by notify-send, osascript or PowerShell.
// Animated toasts are skipped. Command failures are logged, never returned.
func NewDesktopNotifier(opts ...DesktopOption) Notifier {
	d := &desktopNotifier{platform: runtime.GOOS}
	for _, opt := range opts {
		opt(d)
	}
	if d.executor == nil {
		d.executor = &realCommandExecutor{}
	}
	return d
}

func (d *desktopNotifier) Notify(t Toast) {
	if t.Style == Animated {
		return
	}
	title := "ppv: " + t.Title

	var err error
	switch d.platform {
	case "linux":
		args := []string{title, t.Message}
		if t.Style == Failure {
			args = []string{"--urgency=critical", title, t.Message}
		}
		err = d.executor.Execute("notify-send", args...)
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`,
			escapeAppleScript(t.Message), escapeAppleScript(title))
		err = d.executor.Execute("osascript", "-e", script)
	case "windows":
		err = d.executor.Execute("powershell", "-Command", windowsScript(title, t.Message))
	default:
		err = fmt.Errorf("unsupported platform: %s", d.platform)
	}

	if err != nil {
		utils.Debugf("desktop notification failed: %v", err)
	}
}

// escapeAppleScript escapes a string for safe use in AppleScript double-quoted strings.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// escapePowerShell escapes a string for safe use in PowerShell double-quoted strings.
func escapePowerShell(s string) string {
	s = strings.ReplaceAll(s, "`", "``")
	s = strings.ReplaceAll(s, `"`, "`\"")
	s = strings.ReplaceAll(s, "$", "`$")
	return s
}

func windowsScript(title, msg string) string {
	return fmt.Sprintf(`
Add-Type -AssemblyName System.Windows.Forms
$notification = New-Object System.Windows.Forms.NotifyIcon
$notification.Icon = [System.Drawing.SystemIcons]::Information
$notification.BalloonTipTitle = "%s"
$notification.BalloonTipText = "%s"
$notification.Visible = $true
$notification.ShowBalloonTip(5000)
`, escapePowerShell(title), escapePowerShell(msg))
}

// realCommandExecutor executes real system commands
type realCommandExecutor struct{}

// Execute runs a command
func (e *realCommandExecutor) Execute(cmd string, args ...string) error {
	return exec.Command(cmd, args...).Run()
}
