// Package addrmon contains the address monitor that reports addresses
// assigned to wireless links, e.g., after a DHCP lease.
package addrmon

import (
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/telekom-mms/hotspot-login/internal/netinfo"
	"github.com/vishvananda/netlink"
)

// Update is an address update
type Update struct {
	Add     bool
	Address net.IPNet
	Index   int
}

// AddrMon is an address monitor
type AddrMon struct {
	log     log.FieldLogger
	updates chan *Update
	upsDone chan struct{}
	done    chan struct{}
	closed  chan struct{}
}

// wirelessIndex returns whether the link with index is a wireless link.
var wirelessIndex = func(index int) bool {
	link, err := netlink.LinkByIndex(index)
	if err != nil {
		return false
	}
	return netinfo.IsWireless(link.Attrs().Name)
}

// sendUpdate sends an address update
func (a *AddrMon) sendUpdate(update *Update) {
	select {
	case a.updates <- update:
	case <-a.done:
	}
}

// handleAddr handles an address update event.
func (a *AddrMon) handleAddr(e netlink.AddrUpdate) {
	// link-local addresses do not mean we are on a network yet
	if !e.LinkAddress.IP.IsGlobalUnicast() {
		return
	}
	if !wirelessIndex(e.LinkIndex) {
		return
	}

	a.log.WithFields(log.Fields{
		"address": e.LinkAddress.String(),
		"index":   e.LinkIndex,
		"add":     e.NewAddr,
	}).Debug("AddrMon wireless address changed")
	a.sendUpdate(&Update{
		Address: e.LinkAddress,
		Index:   e.LinkIndex,
		Add:     e.NewAddr,
	})
}

// netlinkAddrSubscribeWithOptions is netlink.AddrSubscribeWithOptions for testing.
var netlinkAddrSubscribeWithOptions = netlink.AddrSubscribeWithOptions

// registerAddrUpdates registers for addr update events
var registerAddrUpdates = func(a *AddrMon) (chan netlink.AddrUpdate, error) {
	// existing addresses are handled by the first scheduler cycle
	events := make(chan netlink.AddrUpdate)
	options := netlink.AddrSubscribeOptions{}
	if err := netlinkAddrSubscribeWithOptions(events, a.upsDone, options); err != nil {
		return nil, err
	}

	return events, nil
}

// start starts the address monitor
func (a *AddrMon) start(events chan netlink.AddrUpdate) {
	defer close(a.closed)
	defer close(a.updates)
	defer close(a.upsDone)

	// handle events
	for {
		select {
		case e, ok := <-events:
			if !ok {
				// unexpected close of events, try to re-open
				a.log.Error("AddrMon got unexpected close of addr events")
				var err error
				events, err = registerAddrUpdates(a)
				if err != nil {
					a.log.WithError(err).Error("AddrMon address subscribe error")
					return
				}
				break
			}
			a.handleAddr(e)

		case <-a.done:
			// drain events and wait for channel shutdown; this
			// could take until the next addr update
			go func() {
				for range events {
					// wait for channel shutdown
				}
			}()

			// stop address monitor
			return
		}
	}
}

// Start starts the address monitor
func (a *AddrMon) Start() error {
	events, err := registerAddrUpdates(a)
	if err != nil {
		return err
	}
	go a.start(events)
	return nil
}

// Stop stops the address monitor
func (a *AddrMon) Stop() {
	close(a.done)
	<-a.closed
}

// Updates returns the address updates channel
func (a *AddrMon) Updates() chan *Update {
	return a.updates
}

// NewAddrMon returns a new address monitor
func NewAddrMon(logger log.FieldLogger) *AddrMon {
	return &AddrMon{
		log:     logger,
		updates: make(chan *Update),
		upsDone: make(chan struct{}),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
}
