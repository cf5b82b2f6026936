package apierr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed error", New(KindMalformedResponse, "gemini", errors.New("no candidates")), KindMalformedResponse},
		{"wrapped typed error", fmt.Errorf("turn failed: %w", Rejected("elevenlabs", 401, errors.New("bad key"))), KindUpstreamRejected},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped cancellation", fmt.Errorf("call: %w", context.Canceled), KindTimeout},
		{"plain error", errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := Rejected("elevenlabs", 429, errors.New("rate limited"))
	want := "elevenlabs: upstream_rejected (status 429): rate limited"
	if err.Error() != want {
		t.Errorf("Error = %q, want %q", err.Error(), want)
	}

	plain := Newf(KindDecodeFailure, "elevenlabs", "odd payload length %d", 3)
	if got := plain.Error(); got != "elevenlabs: decode_failure: odd payload length 3" {
		t.Errorf("Error = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := New(KindUpstreamRejected, "openai", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}
