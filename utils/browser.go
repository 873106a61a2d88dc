package utils

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// BrowserPresenter surfaces the device-flow verification URI by opening
// the user's default browser. Close is a no-op: the browser tab is the
// user's to manage, unlike an embedded webview.
type BrowserPresenter struct{}

func (BrowserPresenter) Present(url string) error { return OpenBrowser(url) }

func (BrowserPresenter) Close() {}

func isWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	if data, err := os.ReadFile("/proc/version"); err == nil {
		return strings.Contains(strings.ToLower(string(data)), "wsl")
	}

	return false
}

// OpenBrowser opens the URL with the platform's default browser.
func OpenBrowser(url string) error {
	switch runtime.GOOS {
	case "linux":
		if isWSL() {
			// Use Windows default browser via cmd.exe start
			return exec.Command("cmd.exe", "/c", "start", url).Start()
		}

		for _, opener := range []string{"xdg-open", "sensible-browser", "x-www-browser", "gnome-open", "kde-open"} {
			if _, err := exec.LookPath(opener); err == nil {
				return exec.Command(opener, url).Start()
			}
		}
		return fmt.Errorf("no browser opener found")
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("unsupported platform")
	}
}
