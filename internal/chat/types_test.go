package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseChannelRef(t *testing.T) {
	tests := []struct {
		in   string
		want StreamRef
	}{
		{"UCabc123", StreamRef{ChannelID: "UCabc123"}},
		{"  UCabc123 ", StreamRef{ChannelID: "UCabc123"}},
		{"somecreator", StreamRef{Username: "somecreator"}},
		{"@somecreator", StreamRef{Handle: "somecreator"}},
		{" @UCnotanid ", StreamRef{Handle: "UCnotanid"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseChannelRef(tt.in); got != tt.want {
				t.Errorf("ParseChannelRef(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStreamRef_Validate(t *testing.T) {
	if err := (StreamRef{}).Validate(); !errors.Is(err, ErrNoStreamRef) {
		t.Errorf("empty ref: expected ErrNoStreamRef, got %v", err)
	}
	if err := (StreamRef{VideoID: "v"}).Validate(); err != nil {
		t.Errorf("video ref: unexpected error %v", err)
	}
	if err := (StreamRef{VideoID: "v", Username: "u"}).Validate(); !errors.Is(err, ErrNoStreamRef) {
		t.Errorf("double ref: expected ErrNoStreamRef, got %v", err)
	}
	if err := (StreamRef{Handle: "h", ChannelID: "UC1"}).Validate(); !errors.Is(err, ErrNoStreamRef) {
		t.Errorf("handle and channel: expected ErrNoStreamRef, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	transient := fmt.Errorf("poll: %w", &TransientFetchError{Op: "fetch", Status: 503, Err: errors.New("unavailable")})
	fatal := fmt.Errorf("poll: %w", &FatalFetchError{Op: "fetch", Status: 404, Err: errors.New("gone")})

	if !IsTransient(transient) || IsFatal(transient) {
		t.Errorf("transient error misclassified: %v", transient)
	}
	if !IsFatal(fatal) || IsTransient(fatal) {
		t.Errorf("fatal error misclassified: %v", fatal)
	}
	if IsTransient(ErrStreamEnded) || IsFatal(ErrStreamEnded) {
		t.Errorf("stream end must be neither transient nor fatal")
	}
}
