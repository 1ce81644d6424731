package proxy

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/n0madic/go-gradiogate/internal/session"
)

func newSDKSmokeHTTPServer(t *testing.T, b *fakeBackend) *httptest.Server {
	t.Helper()
	s := newTestServer(t, b, nil)
	return httptest.NewServer(s.Handler())
}

func newOpenAISDKClient(baseURL string) openai.Client {
	return openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("hf_sdk"),
		option.WithMaxRetries(0),
	)
}

func TestOpenAIGoSDKSmokeChatCompletions(t *testing.T) {
	b := &fakeBackend{reply: func(string) (session.Result, error) {
		return single("<details><summary>Thinking</summary>hmm</details>SDK chat works"), nil
	}}

	httpSrv := newSDKSmokeHTTPServer(t, b)
	defer httpSrv.Close()

	client := newOpenAISDKClient(httpSrv.URL + "/v1")

	out, err := client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("gemma-3-12b"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Answer briefly"),
			openai.UserMessage("hello from sdk"),
		},
	})
	if err != nil {
		t.Fatalf("sdk chat completion failed: %v", err)
	}

	if len(out.Choices) == 0 {
		t.Fatalf("expected non-empty choices, got: %+v", out)
	}
	if got := out.Choices[0].Message.Content; got != "SDK chat works" {
		t.Fatalf("unexpected content: %q", got)
	}
	if out.Choices[0].FinishReason != "stop" {
		t.Fatalf("unexpected finish reason: %q", out.Choices[0].FinishReason)
	}

	calls := b.snapshot()
	if len(calls) != 1 || calls[0].credential != "hf_sdk" {
		t.Fatalf("upstream calls: %+v", calls)
	}
}

func TestOpenAIGoSDKSmokeChatCompletionsStreaming(t *testing.T) {
	b := &fakeBackend{reply: func(string) (session.Result, error) {
		return sequence("thinking it over", "streamed answer"), nil
	}}

	httpSrv := newSDKSmokeHTTPServer(t, b)
	defer httpSrv.Close()

	client := newOpenAISDKClient(httpSrv.URL + "/v1")

	stream := client.Chat.Completions.NewStreaming(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("gpt-oss-20b"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("stream please"),
		},
	})

	var content strings.Builder
	var chunks int
	var sawStop bool
	for stream.Next() {
		chunk := stream.Current()
		chunks++
		for _, choice := range chunk.Choices {
			content.WriteString(choice.Delta.Content)
			if choice.FinishReason == "stop" {
				sawStop = true
			}
		}
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("chat stream failed: %v", err)
	}
	if chunks != 3 {
		t.Fatalf("chunks: got %d want 3", chunks)
	}
	if content.String() != "streamed answer" {
		t.Fatalf("unexpected streamed content: %q", content.String())
	}
	if !sawStop {
		t.Fatal("expected stop finish_reason in sdk stream")
	}
}

func TestOpenAIGoSDKSmokeErrors(t *testing.T) {
	httpSrv := newSDKSmokeHTTPServer(t, &fakeBackend{})
	defer httpSrv.Close()

	client := newOpenAISDKClient(httpSrv.URL + "/v1")

	_, err := client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("gpt-4o"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("hello"),
		},
	})
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected API error, got %v", err)
	}
	if apiErr.StatusCode != 400 {
		t.Fatalf("status: got %d want 400", apiErr.StatusCode)
	}
}

func TestOpenAIGoSDKSmokeListModels(t *testing.T) {
	httpSrv := newSDKSmokeHTTPServer(t, &fakeBackend{})
	defer httpSrv.Close()

	client := newOpenAISDKClient(httpSrv.URL + "/v1")

	page, err := client.Models.List(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	var ids []string
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	if len(ids) != 7 || ids[0] != "gpt-oss-20b" || ids[6] != "gemma-3-270m" {
		t.Fatalf("unexpected models: %v", ids)
	}
}
