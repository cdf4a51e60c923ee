package observability

import "testing"

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/v1/users/42/sections/7/score")
	want := "/api/v1/users/{id}/sections/{id}/score"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
}

func TestPathID(t *testing.T) {
	if id := pathID("/api/v1/courses/456/top-users", "courses"); id != 456 {
		t.Fatalf("expected 456, got %d", id)
	}
	if id := pathID("/api/v1/users/9/answers", "courses"); id != 0 {
		t.Fatalf("expected 0 for non-course path, got %d", id)
	}
	if id := pathID("/api/v1/users/9/sections/3/answers", "sections"); id != 3 {
		t.Fatalf("expected 3, got %d", id)
	}
}
