package kb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigured(t *testing.T) {
	if NewClient("", "", "").Configured() {
		t.Error("empty client reported configured")
	}
	if NewClient("key", "", "").Configured() {
		t.Error("missing index reported configured")
	}
	if !NewClient("key", "idx", "").Configured() {
		t.Error("full client reported unconfigured")
	}
}

func TestRetrieveNotConfigured(t *testing.T) {
	if _, err := NewClient("", "", "").Retrieve(context.Background(), "q", 3); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestRetrieve(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody retrieveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		fmt.Fprint(w, `{"retrieval_nodes": [
			{"text": "违约金不得超过实际损失的百分之三十。", "score": 0.91},
			{"score": 0.72, "node": {"text": "当事人可以请求法院适当减少。"}}
		]}`)
	}))
	defer srv.Close()

	client := NewClient("llx-key", "idx-1", srv.URL)
	results, err := client.Retrieve(context.Background(), "违约金上限", 5)
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/v1/pipelines/idx-1/retrieve" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer llx-key" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody.Query != "违约金上限" || gotBody.TopK != 5 {
		t.Errorf("body = %+v", gotBody)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Text != "违约金不得超过实际损失的百分之三十。" || results[0].Score != 0.91 {
		t.Errorf("result 0 = %+v", results[0])
	}
	// Nested node text is used when the flat field is empty.
	if results[1].Text != "当事人可以请求法院适当减少。" {
		t.Errorf("result 1 = %+v", results[1])
	}
}

func TestRetrieveDefaultTopK(t *testing.T) {
	var gotBody retrieveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		fmt.Fprint(w, `{"retrieval_nodes": []}`)
	}))
	defer srv.Close()

	if _, err := NewClient("k", "i", srv.URL).Retrieve(context.Background(), "q", 0); err != nil {
		t.Fatal(err)
	}
	if gotBody.TopK != 3 {
		t.Errorf("top_k = %d", gotBody.TopK)
	}
}

func TestRetrieveHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient("k", "i", srv.URL).Retrieve(context.Background(), "q", 3)
	if !errors.Is(err, ErrQueryFailed) {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("status missing: %v", err)
	}
}

func TestRagQueryToolUnconfigured(t *testing.T) {
	tool := NewRagQueryTool(NewClient("", "", ""))
	out, err := tool.Execute(context.Background(), map[string]any{"query": "q"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "未配置 LLAMACLOUD_API_KEY") {
		t.Errorf("out = %q", out)
	}
}

func TestRagQueryToolFormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retrieval_nodes": [
			{"text": "第一条法律条文。", "score": 0.88},
			{"text": "第二条法律条文。", "score": 0.61}
		]}`)
	}))
	defer srv.Close()

	tool := NewRagQueryTool(NewClient("k", "i", srv.URL))
	out, err := tool.Execute(context.Background(), map[string]any{"query": "违约金", "top_k": float64(2)})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"【知识库查询结果】查询：违约金",
		"--- 结果 1 (相关度: 0.88) ---",
		"第一条法律条文。",
		"--- 结果 2 (相关度: 0.61) ---",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("out missing %q:\n%s", want, out)
		}
	}
}

func TestRagQueryToolEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retrieval_nodes": []}`)
	}))
	defer srv.Close()

	tool := NewRagQueryTool(NewClient("k", "i", srv.URL))
	out, err := tool.Execute(context.Background(), map[string]any{"query": "冷门问题"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "未找到与 '冷门问题' 相关的知识") {
		t.Errorf("out = %q", out)
	}
}

func TestRagQueryToolTransportErrorAsObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tool := NewRagQueryTool(NewClient("k", "i", srv.URL))
	out, err := tool.Execute(context.Background(), map[string]any{"query": "q"})
	if err != nil {
		t.Fatalf("transport failure escaped as error: %v", err)
	}
	if !strings.Contains(out, "知识库查询异常") {
		t.Errorf("out = %q", out)
	}
}
