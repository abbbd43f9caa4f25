package observability

import "testing"

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/v1/jobs", "/v1/jobs"},
		{"/v1/jobs/abc-123", "/v1/jobs/{jobId}"},
		{"/v1/jobs/abc-123/items", "/v1/jobs/{jobId}/items"},
		{"/v1/jobs/abc-123/interrupt", "/v1/jobs/{jobId}/interrupt"},
		{"/livez", "/livez"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
