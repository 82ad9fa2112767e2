package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatch struct {
	calls    int
	contents map[string]string
	failures map[string]string
	err      error
}

func (f *fakeBatch) ExtractAll(ctx context.Context, urls []string) (map[string]string, map[string]string, error) {
	f.calls++
	return f.contents, f.failures, f.err
}

type fakePage struct {
	calls []string
	pages map[string]string
	errs  map[string]error
}

func (f *fakePage) Extract(ctx context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	if text, ok := f.pages[url]; ok {
		return text, nil
	}
	return "", ErrEmptyContent
}

func TestNormalizeURLs(t *testing.T) {
	urls := NormalizeURLs([]string{
		"  example.com/docs  ",
		"",
		"   ",
		"http://plain.example.com",
		"https://secure.example.com",
	})

	assert.Equal(t, []string{
		"https://example.com/docs",
		"http://plain.example.com",
		"https://secure.example.com",
	}, urls)
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategySimple, ParseStrategy("simple"))
	assert.Equal(t, StrategySimple, ParseStrategy(" FAST "))
	assert.Equal(t, StrategyAuto, ParseStrategy("auto"))
	assert.Equal(t, StrategyAuto, ParseStrategy("all"))
	assert.Equal(t, StrategyStructured, ParseStrategy(""))
	assert.Equal(t, StrategyStructured, ParseStrategy("structured"))
	assert.Equal(t, StrategyStructured, ParseStrategy("anything else"))
}

func TestOrchestrator_Run_BatchStageWins(t *testing.T) {
	batch := &fakeBatch{contents: map[string]string{"https://example.com/a": "content"}}
	article := &fakePage{}
	simple := &fakePage{}
	o := NewOrchestrator(batch, article, simple)

	res := o.Run(context.Background(), []string{"example.com/a"}, StrategyStructured)

	assert.Equal(t, 1, batch.calls)
	assert.Empty(t, article.calls, "article stage should not run when batch succeeds")
	assert.Empty(t, simple.calls, "simple stage should not run when batch succeeds")
	assert.Equal(t, "markdown-batch", res.Method)
	assert.Equal(t, "content", res.Contents["https://example.com/a"])
	assert.Empty(t, res.Failures)
}

func TestOrchestrator_Run_FallsBackToArticle(t *testing.T) {
	batch := &fakeBatch{
		failures: map[string]string{"https://example.com/a": "failed to fetch"},
		err:      ErrEmptyBatch,
	}
	article := &fakePage{pages: map[string]string{"https://example.com/a": "readable text"}}
	simple := &fakePage{}
	o := NewOrchestrator(batch, article, simple)

	res := o.Run(context.Background(), []string{"https://example.com/a"}, StrategyStructured)

	assert.Equal(t, 1, batch.calls)
	assert.Equal(t, []string{"https://example.com/a"}, article.calls)
	assert.Empty(t, simple.calls)
	assert.Equal(t, "article", res.Method)
	assert.Equal(t, "readable text", res.Contents["https://example.com/a"])
	assert.Empty(t, res.Failures, "a URL that eventually succeeds leaves the failure log")
}

func TestOrchestrator_Run_FallsBackToSimple(t *testing.T) {
	batch := &fakeBatch{err: ErrEmptyBatch}
	article := &fakePage{errs: map[string]error{"https://example.com/a": ErrEmptyContent}}
	simple := &fakePage{pages: map[string]string{"https://example.com/a": "plain text"}}
	o := NewOrchestrator(batch, article, simple)

	res := o.Run(context.Background(), []string{"https://example.com/a"}, StrategyStructured)

	assert.Equal(t, 1, batch.calls)
	assert.Len(t, article.calls, 1)
	assert.Len(t, simple.calls, 1)
	assert.Equal(t, "simple", res.Method)
	assert.Equal(t, "plain text", res.Contents["https://example.com/a"])
}

func TestOrchestrator_Run_SimpleStrategySkipsCascade(t *testing.T) {
	batch := &fakeBatch{}
	article := &fakePage{}
	simple := &fakePage{pages: map[string]string{"https://example.com/a": "plain text"}}
	o := NewOrchestrator(batch, article, simple)

	res := o.Run(context.Background(), []string{"https://example.com/a"}, StrategySimple)

	assert.Zero(t, batch.calls)
	assert.Empty(t, article.calls)
	assert.Equal(t, "simple", res.Method)
}

func TestOrchestrator_Run_PartialFailureIsolated(t *testing.T) {
	simple := &fakePage{
		pages: map[string]string{"https://example.com/b": "good content"},
		errs:  map[string]error{"https://example.com/a": ErrEmptyContent},
	}
	o := NewOrchestrator(&fakeBatch{}, &fakePage{}, simple)

	res := o.Run(context.Background(), []string{"https://example.com/a", "https://example.com/b"}, StrategySimple)

	assert.Equal(t, "good content", res.Contents["https://example.com/b"])
	assert.Contains(t, res.Failures, "https://example.com/a")
	assert.NotContains(t, res.Contents, "https://example.com/a")
	assert.NotContains(t, res.Failures, "https://example.com/b")
}

func TestOrchestrator_Run_AllStagesFail(t *testing.T) {
	batch := &fakeBatch{
		failures: map[string]string{"https://example.com/a": "status 500"},
		err:      ErrEmptyBatch,
	}
	article := &fakePage{errs: map[string]error{"https://example.com/a": ErrEmptyContent}}
	simple := &fakePage{errs: map[string]error{"https://example.com/a": ErrEmptyContent}}
	o := NewOrchestrator(batch, article, simple)

	res := o.Run(context.Background(), []string{"https://example.com/a"}, StrategyStructured)

	assert.Empty(t, res.Contents)
	assert.Empty(t, res.Method)
	assert.Contains(t, res.Failures, "https://example.com/a")
}

func TestOrchestrator_Run_NoURLs(t *testing.T) {
	batch := &fakeBatch{}
	o := NewOrchestrator(batch, &fakePage{}, &fakePage{})

	res := o.Run(context.Background(), []string{"", "   "}, StrategyStructured)

	require.NotNil(t, res)
	assert.Empty(t, res.Contents)
	assert.Empty(t, res.Failures)
	assert.Zero(t, batch.calls, "no stage should run without URLs")
}

func TestOrchestrator_Run_DropsBlankContent(t *testing.T) {
	batch := &fakeBatch{contents: map[string]string{
		"https://example.com/a": "real",
		"https://example.com/b": "   ",
	}}
	o := NewOrchestrator(batch, &fakePage{}, &fakePage{})

	res := o.Run(context.Background(), []string{"https://example.com/a", "https://example.com/b"}, StrategyStructured)

	assert.Contains(t, res.Contents, "https://example.com/a")
	assert.NotContains(t, res.Contents, "https://example.com/b")
	assert.Contains(t, res.Failures, "https://example.com/b")
}
