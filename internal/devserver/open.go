package devserver

import (
	"context"
	"os/exec"
	"runtime"
)

// browserCommand returns the platform command that opens url.
func browserCommand(goos, url string) []string {
	switch goos {
	case "darwin":
		return []string{"open", url}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}
	default:
		return []string{"xdg-open", url}
	}
}

// OpenBrowser asks the desktop to open url. It does not wait for the browser.
func OpenBrowser(ctx context.Context, url string) error {
	args := browserCommand(runtime.GOOS, url)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
