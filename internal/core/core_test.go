package core

import "testing"

func TestSubmissionStatusValid(t *testing.T) {
	tests := []struct {
		status SubmissionStatus
		want   bool
	}{
		{StatusNew, true},
		{StatusGenerating, true},
		{StatusGenerated, true},
		{StatusInProgress, true},
		{StatusSent, true},
		{SubmissionStatus(""), false},
		{SubmissionStatus("archived"), false},
		{SubmissionStatus("New"), false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("SubmissionStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestImageResultSucceeded(t *testing.T) {
	ok := ImageResult{Prompt: "serum bottle on marble", AdNumber: 1, ImageNumber: 2, ImageURL: "data:image/png;base64,iVBOR"}
	if !ok.Succeeded() {
		t.Error("result with an image URL should report success")
	}

	failed := ImageResult{Prompt: "serum bottle on marble", AdNumber: 1, ImageNumber: 3, Error: "rate limited"}
	if failed.Succeeded() {
		t.Error("result without an image URL should report failure")
	}
}
