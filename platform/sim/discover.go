package sim

import (
	"fmt"

	"github.com/jochenvg/go-udev"

	"github.com/avnera-audio/dspfw/platform"
)

// DiscoverDAIs enumerates host sound devices via udev and returns one
// PortAudioDAI per card, named after the card's udev sysname — standing
// in for the manifest-driven DAI table a real image's boot manifest would
// supply.
func DiscoverDAIs() (map[string]platform.DAI, error) {
	u := udev.Udev{}
	enumerate := u.NewEnumerate()
	if err := enumerate.AddMatchSubsystem("sound"); err != nil {
		return nil, fmt.Errorf("sim: discover dais: match subsystem: %w", err)
	}
	devices, err := enumerate.Devices()
	if err != nil {
		return nil, fmt.Errorf("sim: discover dais: enumerate: %w", err)
	}

	dais := make(map[string]platform.DAI)
	for _, dev := range devices {
		name := dev.Sysname()
		if name == "" {
			continue
		}
		dais[name] = NewPortAudioDAI(name)
	}
	return dais, nil
}
