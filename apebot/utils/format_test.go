package utils

import (
	"math"
	"testing"
)

func TestFormatEth(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5 ETH"},
		{2.0, "2 ETH"},
		{0.01, "0.01 ETH"},
		{1.23456, "1.2346 ETH"},
		{math.NaN(), "unknown"},
	}
	for _, tt := range tests {
		if got := FormatEth(tt.in); got != tt.want {
			t.Errorf("FormatEth(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatScore(t *testing.T) {
	if got := FormatScore(-1); got != "no traits" {
		t.Errorf("FormatScore(-1) = %q", got)
	}
	if got := FormatScore(87); got != "87" {
		t.Errorf("FormatScore(87) = %q", got)
	}
}

func TestFormatPercentile(t *testing.T) {
	if got := FormatPercentile(42.26); got != "42.3%" {
		t.Errorf("FormatPercentile(42.26) = %q", got)
	}
	if got := FormatPercentile(math.NaN()); got != "unknown" {
		t.Errorf("FormatPercentile(NaN) = %q", got)
	}
}
