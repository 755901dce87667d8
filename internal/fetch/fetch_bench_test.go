package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hyperifyio/articlecrawl/internal/normalize"
)

// Benchmark Fetch with different concurrency caps against a local server.
func BenchmarkClient_FetchConcurrency(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>ok</title></head><body><main><p>hello</p></main></body></html>"))
	}))
	defer ts.Close()

	for _, maxConc := range []int{0, 2, 8} {
		b.Run(fmt.Sprintf("max%d", maxConc), func(b *testing.B) {
			cfg := DefaultConfig()
			cfg.AllowPrivateHosts = true
			cfg.MaxConcurrent = maxConc
			c := New(cfg, nil)
			u, err := normalize.Normalize(ts.URL, normalize.Options{AllowPrivateHosts: true})
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			var wg sync.WaitGroup
			for i := 0; i < b.N; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := c.Fetch(context.Background(), u); err != nil {
						b.Error(err)
					}
				}()
			}
			wg.Wait()
		})
	}
}
