package config

import "testing"

func TestOptsStringOmitsUnsetOverrides(t *testing.T) {
	m := Mount{DefaultVolumeSlot: 2, DefaultUid: -1, DefaultGid: -1}
	if got, want := m.OptsString(), "vol=2"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOptsStringIncludesSetOverrides(t *testing.T) {
	m := Mount{DefaultVolumeSlot: 0, DefaultUid: 501, DefaultGid: 20}
	if got, want := m.OptsString(), "vol=0,uid=501,gid=20"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
