package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"lawdesk/internal/apperr"
	"lawdesk/internal/extract"

	"golang.org/x/sync/errgroup"
)

// BatchLimit is the number of files analysed concurrently.
const BatchLimit = 3

type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename, mimeType string) extract.Result
}

type BatchFile struct {
	Name     string
	MimeType string
	Data     []byte
}

type BatchResult struct {
	Name    string         `json:"name"`
	Method  string         `json:"method"`
	Report  extract.Report `json:"report"`
	Summary string         `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type Progress struct {
	File      string `json:"file,omitempty"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Error     string `json:"error,omitempty"`
}

// AnalyzeBatch extracts and summarizes every file with at most BatchLimit
// in flight. A failing file records its error and does not stop the
// others. notify may be nil and must not block.
func (a *Assistant) AnalyzeBatch(ctx context.Context, files []BatchFile, ex TextExtractor, notify func(Progress)) ([]BatchResult, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("ai assistant: %w", apperr.ErrDisabled)
	}
	if notify == nil {
		notify = func(Progress) {}
	}

	results := make([]BatchResult, len(files))
	var completed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(BatchLimit)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			notify(Progress{File: f.Name, Index: i, Total: len(files), Status: "started", Completed: int(completed.Load())})

			res := BatchResult{Name: f.Name}
			ext := ex.Extract(gctx, f.Data, f.Name, f.MimeType)
			res.Method, res.Report = ext.Method, ext.Report

			reply, err := a.Summarize(gctx, ext.Text, 200)
			if err != nil {
				slog.WarnContext(gctx, "batch summary failed", "file", f.Name, "error", err)
				res.Error = err.Error()
			} else {
				res.Summary = reply.Content
			}
			results[i] = res

			status := "done"
			if res.Error != "" {
				status = "failed"
			}
			n := completed.Add(1)
			notify(Progress{File: f.Name, Index: i, Total: len(files), Status: status, Completed: int(n), Error: res.Error})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch analysis: %w", err)
	}
	notify(Progress{Total: len(files), Status: "complete", Completed: int(completed.Load())})
	return results, nil
}
