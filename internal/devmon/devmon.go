// Package devmon contains the device monitor that reports state changes of
// wireless links.
package devmon

import (
	log "github.com/sirupsen/logrus"
	"github.com/telekom-mms/hotspot-login/internal/netinfo"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Update is a wireless link update
type Update struct {
	Add    bool
	Device string
	Index  int
	Up     bool
}

// DevMon is a wireless device monitor
type DevMon struct {
	log     log.FieldLogger
	updates chan *Update
	upsDone chan struct{}
	done    chan struct{}

	// links contains the last known up state of wireless links by index
	links map[int]bool
}

// isWireless is netinfo.IsWireless for testing
var isWireless = netinfo.IsWireless

// sendUpdate sends update over the update channel
func (d *DevMon) sendUpdate(update *Update) {
	// send update or abort if we are shutting down
	select {
	case d.updates <- update:
	case <-d.done:
	}
}

// isUp returns whether link is up and has a carrier
func isUp(link netlink.Link) bool {
	attrs := link.Attrs()
	return attrs.OperState == netlink.OperUp ||
		attrs.RawFlags&unix.IFF_LOWER_UP != 0
}

// handleLink handles a link update
func (d *DevMon) handleLink(add bool, link netlink.Link) {
	attrs := link.Attrs()
	was, known := d.links[attrs.Index]

	if !add {
		// sysfs entry is already gone, only report known links
		if !known {
			return
		}
		delete(d.links, attrs.Index)
		d.log.WithField("device", attrs.Name).Debug("DevMon wireless link removed")
		d.sendUpdate(&Update{Device: attrs.Name, Index: attrs.Index})
		return
	}

	if !known && !isWireless(attrs.Name) {
		return
	}

	// only report changes of the up state
	up := isUp(link)
	if known && was == up {
		return
	}
	d.links[attrs.Index] = up

	d.log.WithFields(log.Fields{
		"device": attrs.Name,
		"up":     up,
	}).Debug("DevMon wireless link changed")
	d.sendUpdate(&Update{
		Add:    true,
		Device: attrs.Name,
		Index:  attrs.Index,
		Up:     up,
	})
}

// registerLinkUpdates registers for link update events
var registerLinkUpdates = func(d *DevMon) (chan netlink.LinkUpdate, error) {
	// register for link update events
	events := make(chan netlink.LinkUpdate)
	options := netlink.LinkSubscribeOptions{
		ListExisting: true,
	}
	if err := netlink.LinkSubscribeWithOptions(events, d.upsDone, options); err != nil {
		return nil, err
	}

	return events, nil
}

// start starts the device monitor
func (d *DevMon) start(events chan netlink.LinkUpdate) {
	defer close(d.updates)
	defer close(d.upsDone)

	// handle link update events
	for {
		select {
		case e, ok := <-events:
			if !ok {
				// unexpected close of events, try to re-open
				d.log.Error("DevMon got unexpected close of link events")
				var err error
				events, err = registerLinkUpdates(d)
				if err != nil {
					d.log.WithError(err).Error("DevMon link update subscribe error")
					return
				}
				break
			}
			switch e.Header.Type {
			case unix.RTM_NEWLINK:
				d.handleLink(true, e)
			case unix.RTM_DELLINK:
				d.handleLink(false, e)
			default:
				d.log.WithField("event", e).Error("DevMon got unknown link event")
			}

		case <-d.done:
			// drain events and wait for channel shutdown; this
			// could take until the next link update
			go func() {
				for range events {
					// wait for channel shutdown
				}
			}()
			return
		}
	}
}

// Start starts the device monitor
func (d *DevMon) Start() error {
	events, err := registerLinkUpdates(d)
	if err != nil {
		return err
	}
	go d.start(events)
	return nil
}

// Stop stops the device monitor
func (d *DevMon) Stop() {
	close(d.done)
	for range d.updates {
		// wait for channel shutdown
	}
}

// Updates returns the Update channel for wireless link updates
func (d *DevMon) Updates() chan *Update {
	return d.updates
}

// NewDevMon returns a new device monitor
func NewDevMon(logger log.FieldLogger) *DevMon {
	return &DevMon{
		log:     logger,
		updates: make(chan *Update),
		upsDone: make(chan struct{}),
		done:    make(chan struct{}),
		links:   make(map[int]bool),
	}
}
