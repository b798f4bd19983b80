package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"text/template"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/logging"
)

// appID is the toast sender name on Windows.
const appID = "PriceToggle"

// command builds the OS notification process. Replaced in tests.
var command = exec.Command

// Message is one desktop notification. Detail is optional.
type Message struct {
	Title   string
	Summary string
	Detail  string
}

// ForRun describes a finished run: the outcome as title, the unit counts as
// summary, and the run error or failed units as detail.
func ForRun(r *automation.Report) Message {
	m := Message{Title: "Pricing updated", Summary: r.Summary()}
	var failedIDs []string
	for _, u := range r.Units {
		if u.Status == automation.StatusFailed {
			failedIDs = append(failedIDs, u.ID)
		}
	}
	switch {
	case r.Error != "":
		m.Title = "Pricing run failed"
		m.Detail = r.Error
	case len(failedIDs) > 0:
		m.Title = "Pricing run finished with failures"
		m.Detail = "Failed: " + strings.Join(failedIDs, ", ")
	}
	return m
}

// Unattended reports whether nobody was watching the run start, so the
// result is worth a desktop notification.
func Unattended(r *automation.Report) bool {
	return strings.HasPrefix(r.Trigger, "schedule:")
}

// Send displays m as a native OS notification. Unsupported platforms are
// skipped and failures are only logged.
func Send(m Message) {
	argv := commandLine(runtime.GOOS, m)
	if argv == nil {
		return
	}
	if err := command(argv[0], argv[1:]...).Run(); err != nil {
		logging.Warnf("[notify] Failed to send notification: %v", err)
	}
}

var toastScript = template.Must(template.New("toast").Parse(`
$kind = [Windows.UI.Notifications.ToastTemplateType]::ToastText04
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
$xml = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent($kind)
$nodes = $xml.GetElementsByTagName('text')
$lines = @('{{.Title}}', '{{.Summary}}', '{{.Detail}}')
for ($i = 0; $i -lt $lines.Count; $i++) { [void]$nodes.Item($i).AppendChild($xml.CreateTextNode($lines[$i])) }
$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('{{.App}}').Show($toast)
`))

// commandLine returns the argv that shows m on goos, or nil when goos has
// no notifier.
func commandLine(goos string, m Message) []string {
	m = Message{Title: sanitize(m.Title), Summary: sanitize(m.Summary), Detail: sanitize(m.Detail)}

	switch goos {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, m.Summary, m.Title)
		if m.Detail != "" {
			script += fmt.Sprintf(` subtitle %q`, m.Detail)
		}
		return []string{"osascript", "-e", script}

	case "linux":
		body := m.Summary
		if m.Detail != "" {
			body += "\n" + m.Detail
		}
		return []string{"notify-send", m.Title, body}

	case "windows":
		var ps strings.Builder
		data := struct {
			Message
			App string
		}{m, appID}
		if err := toastScript.Execute(&ps, data); err != nil {
			logging.Warnf("[notify] %v", err)
			return nil
		}
		return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", ps.String()}
	}
	return nil
}

// sanitize keeps text safe inside single-quoted PowerShell and quoted
// AppleScript strings.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "'", "’")
	s = strings.ReplaceAll(s, "\\", "")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
