package component

import "fmt"

// Registry is the driver dictionary: built once at init from a static
// list, replacing a global mutable table with lookups that return a
// reference sharing the registry's lifetime. Component kinds have no
// secondary index (that applies to platform DAI drivers, see package
// platform), so this registry is keyed by Kind alone.
type Registry struct {
	drivers map[Kind]Driver
}

// NewRegistry builds the registry from the fixed catalogue of built-in
// component kinds.
func NewRegistry() *Registry {
	passthrough := &PassthroughDriver{}
	return &Registry{
		drivers: map[Kind]Driver{
			KindHost:             &HostEndpointDriver{},
			KindDAI:              &DAIEndpointDriver{},
			KindMixer:            &MixerDriver{},
			KindMux:              &MuxDriver{},
			KindVolume:           &VolumeDriver{},
			KindSRC:              passthrough,
			KindEQFIR:            passthrough,
			KindEQIIR:            passthrough,
			KindDRC:              passthrough,
			KindTone:             passthrough,
			KindSmartAmp:         passthrough,
			KindDCBlock:          passthrough,
			KindCrossover:        passthrough,
			KindTDFB:             passthrough,
			KindMFCC:             passthrough,
			KindAEC:              passthrough,
			KindKPB:              passthrough,
			KindKWDDetect:        passthrough,
			KindPipelineEndpoint: passthrough,
		},
	}
}

// Lookup returns the driver for kind, or an error if the kind has no
// registered driver (it cannot, given NewRegistry's exhaustive list, but a
// future Kind addition without a matching driver fails loudly here rather
// than with a nil dereference at Copy time).
func (r *Registry) Lookup(kind Kind) (Driver, error) {
	d, ok := r.drivers[kind]
	if !ok {
		return nil, fmt.Errorf("component: no driver registered for kind %s", kind)
	}
	return d, nil
}
