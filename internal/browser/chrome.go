package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// BrowserKind identifies the type of Chromium-based browser.
type BrowserKind string

const (
	BrowserChrome   BrowserKind = "chrome"
	BrowserBrave    BrowserKind = "brave"
	BrowserEdge     BrowserKind = "edge"
	BrowserChromium BrowserKind = "chromium"
	BrowserCustom   BrowserKind = "custom"
)

// BrowserExecutable represents a found browser binary.
type BrowserExecutable struct {
	Kind BrowserKind
	Path string
}

type candidate struct {
	kind BrowserKind
	path string
}

// FindChromeExecutable finds a Chrome/Chromium browser on the system.
// A non-empty customPath must exist. A nil result with a nil error means
// nothing was found and the backend should use its own default.
func FindChromeExecutable(customPath string) (*BrowserExecutable, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return nil, fmt.Errorf("browser executable not found: %s", customPath)
		}
		return &BrowserExecutable{Kind: BrowserCustom, Path: customPath}, nil
	}

	for _, c := range candidatesFor(runtime.GOOS) {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}, nil
		}
	}

	for _, c := range []candidate{
		{BrowserChrome, "google-chrome"},
		{BrowserChrome, "google-chrome-stable"},
		{BrowserChromium, "chromium"},
		{BrowserChromium, "chromium-browser"},
	} {
		if p, err := exec.LookPath(c.path); err == nil {
			return &BrowserExecutable{Kind: c.kind, Path: p}, nil
		}
	}
	return nil, nil
}

func candidatesFor(goos string) []candidate {
	home := os.Getenv("HOME")
	switch goos {
	case "darwin":
		return []candidate{
			{BrowserChrome, "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
			{BrowserChrome, filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome")},
			{BrowserBrave, "/Applications/Brave Browser.app/Contents/MacOS/Brave Browser"},
			{BrowserEdge, "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
			{BrowserChromium, "/Applications/Chromium.app/Contents/MacOS/Chromium"},
		}
	case "linux":
		return []candidate{
			{BrowserChrome, "/usr/bin/google-chrome"},
			{BrowserChrome, "/usr/bin/google-chrome-stable"},
			{BrowserBrave, "/usr/bin/brave-browser"},
			{BrowserEdge, "/usr/bin/microsoft-edge"},
			{BrowserChromium, "/usr/bin/chromium"},
			{BrowserChromium, "/usr/bin/chromium-browser"},
			{BrowserChromium, "/snap/bin/chromium"},
		}
	case "windows":
		programFiles := os.Getenv("ProgramFiles")
		if programFiles == "" {
			programFiles = `C:\Program Files`
		}
		programFilesX86 := os.Getenv("ProgramFiles(x86)")
		if programFilesX86 == "" {
			programFilesX86 = `C:\Program Files (x86)`
		}
		var out []candidate
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			out = append(out,
				candidate{BrowserChrome, filepath.Join(local, "Google", "Chrome", "Application", "chrome.exe")},
				candidate{BrowserEdge, filepath.Join(local, "Microsoft", "Edge", "Application", "msedge.exe")},
			)
		}
		return append(out,
			candidate{BrowserChrome, filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{BrowserChrome, filepath.Join(programFilesX86, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{BrowserEdge, filepath.Join(programFilesX86, "Microsoft", "Edge", "Application", "msedge.exe")},
		)
	default:
		return nil
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
