// Package probe checks that the configured search endpoints answer the way
// the order form expects.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultQuery is the query sent when none is given.
const DefaultQuery = "a"

// snippetLen bounds the raw body excerpt in a result.
const snippetLen = 100

// Target is one endpoint to probe.
type Target struct {
	Name string
	URL  string
}

// Result is the outcome of probing one target.
type Result struct {
	Name      string
	URL       string
	Status    int
	Snippet   string
	ValidJSON bool
	IsArray   bool
	Count     int
	FirstKeys []string
	Duration  time.Duration
	Err       error
}

// OK reports whether the endpoint answered 2xx with valid JSON.
func (r Result) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status <= 299 && r.ValidJSON
}

// Options configures Run.
type Options struct {
	Client      *http.Client
	Query       string
	Parallelism int
}

// Run probes every target concurrently. Per-target failures are recorded in
// the results; results keep the order of targets.
func Run(ctx context.Context, targets []Target, opts Options) []Result {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	query := opts.Query
	if query == "" {
		query = DefaultQuery
	}

	results := make([]Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, t := range targets {
		g.Go(func() error {
			results[i] = probeOne(gctx, client, t, query)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func probeOne(ctx context.Context, client *http.Client, t Target, query string) (res Result) {
	res = Result{Name: t.Name, URL: t.URL}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	body, _ := json.Marshal(map[string]string{"query": query})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read body: %w", err)
		return res
	}
	res.Status = resp.StatusCode
	res.Snippet = truncate(string(text), snippetLen)

	var data any
	if err := json.Unmarshal(text, &data); err != nil {
		return res
	}
	res.ValidJSON = true

	switch v := data.(type) {
	case []any:
		res.IsArray = true
		res.Count = len(v)
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				res.FirstKeys = keys(obj)
			}
		}
	case map[string]any:
		res.Count = 1
		res.FirstKeys = keys(v)
	}
	return res
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Report writes one block per result, in the order given.
func Report(w io.Writer, results []Result) {
	for _, r := range results {
		fmt.Fprintf(w, "[%s] %s\n", r.Name, r.URL)
		if r.Err != nil {
			fmt.Fprintf(w, "[%s] Error: %v\n", r.Name, r.Err)
			fmt.Fprintln(w, "---")
			continue
		}
		fmt.Fprintf(w, "[%s] Status: %d (%s)\n", r.Name, r.Status, r.Duration.Round(time.Millisecond))
		fmt.Fprintf(w, "[%s] Raw response: %s\n", r.Name, r.Snippet)
		if !r.ValidJSON {
			fmt.Fprintf(w, "[%s] Valid JSON: no\n", r.Name)
			fmt.Fprintln(w, "---")
			continue
		}
		fmt.Fprintf(w, "[%s] Valid JSON: yes\n", r.Name)
		fmt.Fprintf(w, "[%s] Is array: %t (%d items)\n", r.Name, r.IsArray, r.Count)
		if len(r.FirstKeys) > 0 {
			fmt.Fprintf(w, "[%s] First item keys: %s\n", r.Name, strings.Join(r.FirstKeys, ", "))
		}
		fmt.Fprintln(w, "---")
	}
}

// Failed counts results that are not OK.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}
