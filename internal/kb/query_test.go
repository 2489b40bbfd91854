package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuery(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/knowledge-base/docs/query" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"output":"the answer","chunks":[{"chunkID":"c1","content":"...","score":0.92}]}`)
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	resp, err := c.QueryWithFilter(context.Background(), QueryRequest{
		Question:   "what is the refund policy?",
		ChunkLimit: 5,
		Synthesis:  true,
		Settings:   &QuerySettings{Model: "gpt-4o", Temperature: 0.1, System: "be terse"},
	}, And(Eq("category", "policy"), Gt("version", 2)))
	if err != nil {
		t.Fatalf("QueryWithFilter: %v", err)
	}

	if gotBody["question"] != "what is the refund policy?" {
		t.Errorf("question = %v", gotBody["question"])
	}
	if gotBody["chunkLimit"] != float64(5) {
		t.Errorf("chunkLimit = %v", gotBody["chunkLimit"])
	}
	settings := gotBody["settings"].(map[string]any)
	if settings["model"] != "gpt-4o" || settings["system"] != "be terse" {
		t.Errorf("settings = %v", settings)
	}
	filters := gotBody["filters"].(map[string]any)
	if _, ok := filters["$and"]; !ok {
		t.Errorf("filters = %v", filters)
	}

	if resp.Output != "the answer" || len(resp.Chunks) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestQueryWithFilter_InvalidFilterNoCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected for an invalid filter")
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	_, err := c.QueryWithFilter(context.Background(), QueryRequest{Question: "q"}, Or())
	if !IsKind(err, KindValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestQuery_RequiresQuestion(t *testing.T) {
	c := New("key", WithBaseURL("http://127.0.0.1:0"))
	_, err := c.Query(context.Background(), QueryRequest{})
	if !IsKind(err, KindValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}
