package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCountersExposed(t *testing.T) {
	m := New()
	m.CommentsCreated.Inc()
	m.CommentsDeleted.WithLabelValues("soft").Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	if !strings.Contains(out, "commentthread_comments_created_total 1") {
		t.Fatalf("metrics output missing created counter:\n%s", out)
	}
	if !strings.Contains(out, `commentthread_comments_deleted_total{mode="soft"} 2`) {
		t.Fatalf("metrics output missing deleted counter:\n%s", out)
	}
}
