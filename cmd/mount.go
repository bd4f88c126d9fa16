package cmd

import (
	"github.com/coreblocks/apfscore/internal/config"
	"github.com/coreblocks/apfscore/pkg/container"
	"github.com/coreblocks/apfscore/pkg/device"
)

// openMount opens imagePath read-only and runs the boot sequence against
// it, using the --opts flag when set and falling back to the configured
// default mount options otherwise.
func openMount(imagePath string) (*container.Mount, *device.FileDevice, error) {
	dev, err := device.OpenFile(imagePath, 0)
	if err != nil {
		return nil, nil, err
	}

	rawOpts := mountOpts
	if rawOpts == "" {
		cfg, cfgErr := config.Load()
		if cfgErr == nil {
			rawOpts = cfg.OptsString()
		}
	}

	m, err := container.Open(dev, rawOpts)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return m, dev, nil
}
