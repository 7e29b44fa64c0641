package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/browser"
)

// openWhenReady polls url's health endpoint until it answers 200, then
// opens url in the user's default browser. It gives up silently after
// timeout; a missed auto-open is not worth failing the server over.
func openWhenReady(url string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := http.Get(fmt.Sprintf("%s/healthz", url))
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				_ = browser.OpenURL(url)
				return
			}
		}
	}
}
