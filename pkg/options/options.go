// Package options parses the mount option string the host hands the core:
// a comma-separated list of key=value pairs selecting the volume to mount
// and the inode ownership overrides applied to every file in it.
package options

import (
	"strconv"
	"strings"

	"github.com/coreblocks/apfscore/pkg/apfserr"
)

// Options is the parsed, validated form of a mount option string.
type Options struct {
	// VolumeSlot selects which container file-system slot to mount.
	VolumeSlot uint32
	// UidOverride, if UidOverrideSet, replaces every inode's owning user.
	UidOverride    uint32
	UidOverrideSet bool
	// GidOverride, if GidOverrideSet, replaces every inode's owning group.
	GidOverride    uint32
	GidOverrideSet bool
}

// Parse parses a possibly-empty comma-separated option string. Unknown keys
// and malformed integers both fail with apfserr.InvalidOption; empty
// segments between commas (including a wholly empty input) are skipped.
func Parse(raw string) (Options, error) {
	opts := Options{VolumeSlot: 0}

	for _, segment := range strings.Split(raw, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			return Options{}, apfserr.New(apfserr.InvalidOption, segment, "option has no value")
		}

		switch key {
		case "vol":
			n, err := parseU32(value)
			if err != nil {
				return Options{}, invalidInt(segment, err)
			}
			opts.VolumeSlot = n
		case "uid":
			n, err := parseU32(value)
			if err != nil {
				return Options{}, invalidInt(segment, err)
			}
			opts.UidOverride = n
			opts.UidOverrideSet = true
		case "gid":
			n, err := parseU32(value)
			if err != nil {
				return Options{}, invalidInt(segment, err)
			}
			opts.GidOverride = n
			opts.GidOverrideSet = true
		default:
			return Options{}, apfserr.New(apfserr.InvalidOption, segment, "unrecognized mount option")
		}
	}

	return opts, nil
}

func parseU32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func invalidInt(segment string, cause error) error {
	return apfserr.Wrap(apfserr.InvalidOption, segment, "malformed integer", cause)
}
