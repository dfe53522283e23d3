// Package discovery advertises a running simulator instance over mDNS so
// out-of-process test tooling (a host-side test harness) can find it
// without a hardcoded address; cmd/dspfw-ctl does not use it and takes
// the console pty path as a flag. This has no hardware
// counterpart; the wire transport a real host uses to reach the DSP is
// fixed silicon, never something a DSP-side package needs to advertise.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"

	"github.com/avnera-audio/dspfw/platform"
)

// ServiceType is the DNS-SD service type dspfw-sim instances advertise
// under.
const ServiceType = "_dspfw-ipc._tcp"

// Advertiser owns the mDNS responder for one advertised instance.
type Advertiser struct {
	responder dnssd.Responder
	cancel    context.CancelFunc
	log       platform.Log
}

// Announce registers name/port with the local mDNS responder and starts
// responding in the background. Callers call Close to withdraw the
// advertisement.
func Announce(name string, port int, log platform.Log) (*Advertiser, error) {
	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: new service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("discovery: new responder: %w", err)
	}
	if _, err := responder.Add(service); err != nil {
		return nil, fmt.Errorf("discovery: add service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Advertiser{responder: responder, cancel: cancel, log: log}

	go func() {
		if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
			if log != nil {
				log.Emit(platform.LogError, platform.ClassPlatform, "discovery: responder stopped: "+err.Error())
			}
		}
	}()

	if log != nil {
		log.Emit(platform.LogInfo, platform.ClassPlatform, "discovery: announcing "+name+" on port", uint32(port))
	}
	return a, nil
}

// Close withdraws the advertisement and stops the responder goroutine.
func (a *Advertiser) Close() {
	a.cancel()
}

// DefaultName derives a service instance name from the id of the core
// being announced, as a fallback when no operator-chosen name is
// configured.
func DefaultName(core uint32) string {
	return fmt.Sprintf("dspfw-sim-core%d", core)
}
