package history

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_uploads_created_at", "idx_uploads_document_id"}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("index %s not found", idx)
		}
	}
}

func TestSaveAndGetUpload(t *testing.T) {
	s := openTestStore(t)

	u := Upload{
		ID:         "up-1",
		Name:       "report.txt",
		SourceType: "url",
		Source:     "https://example.com/report",
	}
	if err := s.SaveUpload(u); err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}

	got, err := s.GetUpload("up-1")
	if err != nil {
		t.Fatalf("GetUpload: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %q, want pending default", got.Status)
	}
	if got.Name != "report.txt" || got.SourceType != "url" {
		t.Errorf("row = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not defaulted")
	}
}

func TestGetUpload_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetUpload("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkUploaded(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveUpload(Upload{ID: "up-2", Name: "n", SourceType: "file", Source: "doc.pdf"}); err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}

	if err := s.MarkUploaded("up-2", "doc-remote-9"); err != nil {
		t.Fatalf("MarkUploaded: %v", err)
	}

	got, err := s.GetUpload("up-2")
	if err != nil {
		t.Fatalf("GetUpload: %v", err)
	}
	if got.Status != StatusUploaded || got.DocumentID != "doc-remote-9" {
		t.Errorf("row = %+v", got)
	}
}

func TestMarkFailed_KeepsDocumentID(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveUpload(Upload{ID: "up-3", DocumentID: "doc-1", Name: "n", SourceType: "url", Source: "u"}); err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}

	if err := s.MarkFailed("up-3", "quota exceeded"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, _ := s.GetUpload("up-3")
	if got.Status != StatusFailed || got.LastError != "quota exceeded" {
		t.Errorf("row = %+v", got)
	}
	if got.DocumentID != "doc-1" {
		t.Errorf("document_id cleared: %+v", got)
	}
}

func TestMarkUploaded_NotFound(t *testing.T) {
	s := openTestStore(t)
	if err := s.MarkUploaded("missing", "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListUploads_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i := range 5 {
		u := Upload{
			ID:         fmt.Sprintf("up-%d", i),
			Name:       fmt.Sprintf("doc-%d", i),
			SourceType: "url",
			Source:     "u",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveUpload(u); err != nil {
			t.Fatalf("SaveUpload %d: %v", i, err)
		}
	}

	got, err := s.ListUploads(3)
	if err != nil {
		t.Fatalf("ListUploads: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "up-4" || got[2].ID != "up-2" {
		t.Errorf("order wrong: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestDeleteUpload(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveUpload(Upload{ID: "up-d", Name: "n", SourceType: "url", Source: "u"}); err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if err := s.DeleteUpload("up-d"); err != nil {
		t.Fatalf("DeleteUpload: %v", err)
	}
	if err := s.DeleteUpload("up-d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestFindByDocumentID(t *testing.T) {
	s := openTestStore(t)
	for i, docID := range []string{"doc-a", "doc-b", "doc-a"} {
		u := Upload{ID: fmt.Sprintf("up-%d", i), DocumentID: docID, Name: "n", SourceType: "url", Source: "u"}
		if err := s.SaveUpload(u); err != nil {
			t.Fatalf("SaveUpload: %v", err)
		}
	}

	got, err := s.FindByDocumentID("doc-a")
	if err != nil {
		t.Fatalf("FindByDocumentID: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}
