package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short stays", "fix the bug", 60, "fix the bug"},
		{"exact stays", "abcde", 5, "abcde"},
		{"long is cut", "abcdefghij", 8, "abcde..."},
		{"multi-byte cut on rune boundary", strings.Repeat("département", 10), 10, "départe..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			// Never split a character in half.
			assert.True(t, strings.HasSuffix(tt.in, got) || strings.HasSuffix(got, "..."))
		})
	}
}

func TestAge(t *testing.T) {
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"seconds", 20 * time.Second, "<1m"},
		{"minutes", 5 * time.Minute, "5m"},
		{"hours", 3 * time.Hour, "3h"},
		{"days", 49 * time.Hour, "2d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, age(time.Now().Add(-tt.ago)))
		})
	}
}
