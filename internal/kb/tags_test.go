package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3alpha/knowledge-base/tags" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[{"tagID":"t1","label":"research"},{"tagID":"t2","label":"notes"}]}`)
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	tags, err := c.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 || tags[0].Label != "research" {
		t.Errorf("tags = %v", tags)
	}
}

func TestFindTagID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"tagID":"t1","label":"research"}]}`)
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	id, err := c.FindTagID(context.Background(), "research")
	if err != nil || id != "t1" {
		t.Errorf("FindTagID = (%q, %v), want (t1, nil)", id, err)
	}

	_, err = c.FindTagID(context.Background(), "missing")
	if !IsKind(err, KindNotFound) {
		t.Errorf("error = %v, want not_found", err)
	}
}

// The diff sync must issue exactly the attach and detach calls implied by
// the difference between current and desired labels.
func TestSyncDocumentTags(t *testing.T) {
	type call struct {
		op   string
		tags []string
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data struct {
				Tags []string `json:"tags"`
			} `json:"data"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/v3alpha/knowledge-base/docs/d1/tags/attach":
			calls = append(calls, call{"attach", body.Data.Tags})
		case "/v3alpha/knowledge-base/docs/d1/tags/detach":
			calls = append(calls, call{"detach", body.Data.Tags})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	err := c.SyncDocumentTags(context.Background(), "d1",
		[]string{"keep", "new"},
		[]string{"keep", "old"})
	if err != nil {
		t.Fatalf("SyncDocumentTags: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("calls = %v, want detach then attach", calls)
	}
	if calls[0].op != "detach" || len(calls[0].tags) != 1 || calls[0].tags[0] != "old" {
		t.Errorf("detach call = %+v", calls[0])
	}
	if calls[1].op != "attach" || len(calls[1].tags) != 1 || calls[1].tags[0] != "new" {
		t.Errorf("attach call = %+v", calls[1])
	}
}

func TestSyncDocumentTags_NoChanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no calls expected when tags are unchanged")
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	if err := c.SyncDocumentTags(context.Background(), "d1", []string{"a"}, []string{"a"}); err != nil {
		t.Fatalf("SyncDocumentTags: %v", err)
	}
}

func TestCreateDeleteTag(t *testing.T) {
	var deletedID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			fmt.Fprint(w, `{"data":{"tagID":"t9","label":"fresh"}}`)
		case http.MethodDelete:
			deletedID = r.URL.Path
		}
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	tag, err := c.CreateTag(context.Background(), "fresh")
	if err != nil || tag.TagID != "t9" {
		t.Fatalf("CreateTag = (%+v, %v)", tag, err)
	}
	if err := c.DeleteTag(context.Background(), tag.TagID); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if deletedID != "/v3alpha/knowledge-base/tags/t9" {
		t.Errorf("delete path = %q", deletedID)
	}
}
