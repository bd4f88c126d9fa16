package options

import (
	"testing"

	"github.com/coreblocks/apfscore/pkg/apfserr"
)

func TestParseDefaults(t *testing.T) {
	got, err := Parse("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.VolumeSlot != 0 || got.UidOverrideSet || got.GidOverrideSet {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestParseAllKeys(t *testing.T) {
	got, err := Parse("vol=2,uid=501,gid=20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.VolumeSlot != 2 || !got.UidOverrideSet || got.UidOverride != 501 || !got.GidOverrideSet || got.GidOverride != 20 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestParseSkipsEmptySegments(t *testing.T) {
	got, err := Parse("vol=1,,gid=5,")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.VolumeSlot != 1 || got.GidOverride != 5 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestParseUnknownKeyInvalid(t *testing.T) {
	_, err := Parse("frobnicate=1")
	if !apfserr.Is(err, apfserr.InvalidOption) {
		t.Fatalf("expected InvalidOption, got %v", err)
	}
}

func TestParseMalformedIntegerInvalid(t *testing.T) {
	_, err := Parse("uid=not-a-number")
	if !apfserr.Is(err, apfserr.InvalidOption) {
		t.Fatalf("expected InvalidOption, got %v", err)
	}
}
