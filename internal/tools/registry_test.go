package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostwallet/hunter/internal/blacklist"
)

type fakeTool struct {
	name string
	fn   func(ctx context.Context, input map[string]interface{}) Result
}

func (f *fakeTool) Name() string     { return f.name }
func (f *fakeTool) Describe() string { return "fake" }
func (f *fakeTool) Execute(ctx context.Context, input map[string]interface{}) Result {
	return f.fn(ctx, input)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "alpha", fn: func(context.Context, map[string]interface{}) Result {
		return Ok("hi")
	}}))

	assert.Error(t, r.Register(&fakeTool{name: "alpha"}), "duplicate names rejected")
	assert.Error(t, r.Register(&fakeTool{name: ""}))

	got, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Name())
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, []string{"alpha"}, r.Names())
}

func TestExecuteSafeRecoversPanics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "boom", fn: func(context.Context, map[string]interface{}) Result {
		panic("kaboom")
	}}))

	res := r.ExecuteSafe(context.Background(), "boom", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "kaboom")

	res = r.ExecuteSafe(context.Background(), "missing", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown tool")
}

func TestDetectSwearingWordlist(t *testing.T) {
	d := NewDetectSwearing(nil)

	res := d.Execute(context.Background(), map[string]interface{}{"text": "What the hell is this"})
	require.True(t, res.Success)
	out := res.Output.(map[string]interface{})
	assert.Equal(t, true, out["contains_swearing"])
	assert.Equal(t, "wordlist", out["method"])

	res = d.Execute(context.Background(), map[string]interface{}{"text": "A perfectly polite sentence"})
	require.True(t, res.Success)
	out = res.Output.(map[string]interface{})
	assert.Equal(t, false, out["contains_swearing"])

	res = d.Execute(context.Background(), map[string]interface{}{})
	assert.False(t, res.Success)
}

func TestRiskAssessmentIsDeterministic(t *testing.T) {
	r := NewRiskAssessment()
	input := map[string]interface{}{
		"transaction_count":     float64(600),
		"balance_sol":           0.001,
		"unique_counterparties": float64(590),
		"failed_ratio":          0.5,
	}

	first := r.Execute(context.Background(), input)
	second := r.Execute(context.Background(), input)
	require.True(t, first.Success)
	assert.Equal(t, first.Output, second.Output)

	out := first.Output.(map[string]interface{})
	assert.Equal(t, 100.0, out["risk_score"], "all factors firing caps at 100")

	quiet := r.Execute(context.Background(), map[string]interface{}{
		"transaction_count": float64(3),
		"balance_sol":       5.0,
	})
	out = quiet.Output.(map[string]interface{})
	assert.Equal(t, 0.0, out["risk_score"])
}

func TestCheckBlacklistTool(t *testing.T) {
	dir := t.TempDir()
	checker := blacklist.New(dir+"/none.json", 0, nil)
	tool := NewCheckBlacklist(checker)

	res := tool.Execute(context.Background(), map[string]interface{}{"address": "not-an-address!"})
	assert.False(t, res.Success)

	res = tool.Execute(context.Background(), map[string]interface{}{
		"address": "So11111111111111111111111111111111111111112",
	})
	require.True(t, res.Success)
	verdict := res.Output.(blacklist.Verdict)
	assert.Equal(t, blacklist.StatusUnknown, verdict.Status)
}

func TestScrapeArticleExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><style>body{color:red}</style></head>
			<body><script>evil()</script><h1>Title</h1><p>Hello   world</p></body></html>`)
	}))
	defer srv.Close()

	res := NewScrapeArticle().Execute(context.Background(), map[string]interface{}{"url": srv.URL})
	require.True(t, res.Success, res.Error)
	out := res.Output.(map[string]interface{})
	assert.Equal(t, "Title Hello world", out["text"])

	res = NewScrapeArticle().Execute(context.Background(), map[string]interface{}{"url": "ftp://nope"})
	assert.False(t, res.Success)
}

func TestLLMChatToolAgainstOpenAIStub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"pong"}}]}`)
	}))
	defer srv.Close()

	llm := NewLLMClient(LLMConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL})
	require.True(t, llm.Enabled())

	res := NewLLMChat(llm).Execute(context.Background(), map[string]interface{}{"prompt": "ping"})
	require.True(t, res.Success, res.Error)
	out := res.Output.(map[string]interface{})
	assert.Equal(t, "pong", out["reply"])
}

func TestLLMClientDisabledWithoutConfig(t *testing.T) {
	llm := NewLLMClient(LLMConfig{})
	assert.False(t, llm.Enabled())

	res := NewLLMChat(llm).Execute(context.Background(), map[string]interface{}{"prompt": "ping"})
	assert.False(t, res.Success)
}

func TestExtractJSON(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(ExtractJSON("```json\n{\"a\":1}\n```")))
	assert.JSONEq(t, `{"a":1}`, string(ExtractJSON("Here you go: {\"a\":1} hope that helps")))
}

func TestTelegramToolsAgainstStub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/bottok/sendMessage":
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7}}`)
		case r.URL.Path == "/bottok/banChatMember":
			fmt.Fprint(w, `{"ok":false,"description":"not enough rights"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	send, err := NewSendMessage("tok", srv.URL)
	require.NoError(t, err)
	res := send.Execute(context.Background(), map[string]interface{}{"chat_id": "@chan", "text": "hi"})
	assert.True(t, res.Success, res.Error)

	ban, err := NewBanUser("tok", srv.URL)
	require.NoError(t, err)
	res = ban.Execute(context.Background(), map[string]interface{}{"chat_id": "@chan", "user_id": float64(42)})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not enough rights")

	_, err = NewSendMessage("", srv.URL)
	assert.Error(t, err)
}
