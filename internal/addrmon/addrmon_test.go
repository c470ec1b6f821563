package addrmon

import (
	"errors"
	"net"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// testAddrUpdate returns an address update for testing.
func testAddrUpdate(ip net.IP, index int) netlink.AddrUpdate {
	return netlink.AddrUpdate{
		LinkAddress: net.IPNet{
			IP:   ip,
			Mask: net.CIDRMask(24, 32),
		},
		LinkIndex: index,
		NewAddr:   true,
	}
}

// setTestWireless sets the wireless link indexes for testing.
func setTestWireless(t *testing.T, indexes ...int) {
	old := wirelessIndex
	wirelessIndex = func(index int) bool {
		for _, i := range indexes {
			if i == index {
				return true
			}
		}
		return false
	}
	t.Cleanup(func() { wirelessIndex = old })
}

// TestAddrMonHandleAddr tests handleAddr of AddrMon.
func TestAddrMonHandleAddr(t *testing.T) {
	setTestWireless(t, 3)
	a := NewAddrMon(log.StandardLogger())

	// ignored updates, would block otherwise
	a.handleAddr(testAddrUpdate(net.IPv4(192, 168, 1, 1), 2))
	a.handleAddr(testAddrUpdate(net.IPv4(169, 254, 1, 1), 3))
	a.handleAddr(testAddrUpdate(net.ParseIP("fe80::1"), 3))

	// wireless link
	go a.handleAddr(testAddrUpdate(net.IPv4(192, 168, 1, 1), 3))
	got := <-a.Updates()
	if !got.Add || got.Index != 3 || !got.Address.IP.Equal(net.IPv4(192, 168, 1, 1)) {
		t.Errorf("unexpected update: %v", got)
	}
}

// TestAddrMonStartStop tests Start and Stop of AddrMon.
func TestAddrMonStartStop(t *testing.T) {
	// clean up after tests
	oldRegisterAddrUpdates := registerAddrUpdates
	defer func() {
		netlinkAddrSubscribeWithOptions = netlink.AddrSubscribeWithOptions
		registerAddrUpdates = oldRegisterAddrUpdates
	}()
	setTestWireless(t, 3)

	// test netlink error
	addrMon := NewAddrMon(log.StandardLogger())

	netlinkAddrSubscribeWithOptions = func(chan<- netlink.AddrUpdate,
		<-chan struct{}, netlink.AddrSubscribeOptions) error {
		return errors.New("test error")
	}

	if err := addrMon.Start(); err == nil {
		t.Error("start should fail")
	}

	// test without netlink error
	addrMon = NewAddrMon(log.StandardLogger())

	netlinkAddrSubscribeWithOptions = func(chan<- netlink.AddrUpdate,
		<-chan struct{}, netlink.AddrSubscribeOptions) error {
		return nil
	}

	if err := addrMon.Start(); err != nil {
		t.Fatal(err)
	}
	addrMon.Stop()

	// helper function for AddrUpdates
	addrUpdates := func(updates chan netlink.AddrUpdate, done chan struct{}) {
		for {
			up := testAddrUpdate(net.IPv4(192, 168, 1, 1), 3)
			select {
			case updates <- up:
			case <-done:
				close(updates)
				return
			}
		}
	}

	// test with AddrUpdates
	addrMon = NewAddrMon(log.StandardLogger())

	registerAddrUpdates = func(a *AddrMon) (chan netlink.AddrUpdate, error) {
		updates := make(chan netlink.AddrUpdate)
		go addrUpdates(updates, a.upsDone)
		return updates, nil
	}

	if err := addrMon.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if u := <-addrMon.Updates(); u.Index != 3 {
			t.Errorf("unexpected update: %v", u)
		}
	}
	addrMon.Stop()

	// test with unexpected close and AddrUpdates
	addrMon = NewAddrMon(log.StandardLogger())
	runOnce := false

	registerAddrUpdates = func(a *AddrMon) (chan netlink.AddrUpdate, error) {
		updates := make(chan netlink.AddrUpdate)
		if !runOnce {
			runOnce = true
			close(updates)
		} else {
			go addrUpdates(updates, a.upsDone)
		}
		return updates, nil
	}

	if err := addrMon.Start(); err != nil {
		t.Fatal(err)
	}
	<-addrMon.Updates()
	addrMon.Stop()

	// test with unexpected close and failing re-open
	addrMon = NewAddrMon(log.StandardLogger())
	runOnce = false

	registerAddrUpdates = func(*AddrMon) (chan netlink.AddrUpdate, error) {
		if runOnce {
			return nil, errors.New("test error")
		}
		runOnce = true
		updates := make(chan netlink.AddrUpdate)
		close(updates)
		return updates, nil
	}

	if err := addrMon.Start(); err != nil {
		t.Fatal(err)
	}
	for range addrMon.Updates() {
		// wait for channel shutdown
	}
	addrMon.Stop()
}

// TestAddrMonUpdates tests Updates of AddrMon.
func TestAddrMonUpdates(t *testing.T) {
	addrMon := NewAddrMon(log.StandardLogger())
	got := addrMon.Updates()
	want := addrMon.updates
	if got != want {
		t.Errorf("got %p, want %p", got, want)
	}
}

// TestNewAddrMon tests NewAddrMon.
func TestNewAddrMon(t *testing.T) {
	addrMon := NewAddrMon(log.StandardLogger())
	if addrMon.log == nil ||
		addrMon.updates == nil ||
		addrMon.upsDone == nil ||
		addrMon.done == nil ||
		addrMon.closed == nil {

		t.Errorf("got nil, want != nil")
	}
}
