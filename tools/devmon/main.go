/*
Devmon is a wireless device and address monitor example.
*/
package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/telekom-mms/hotspot-login/internal/addrmon"
	"github.com/telekom-mms/hotspot-login/internal/devmon"
)

func main() {
	log.SetLevel(log.DebugLevel)
	d := devmon.NewDevMon(log.WithField("component", "devmon"))
	if err := d.Start(); err != nil {
		log.WithError(err).Fatal("could not start DevMon")
	}
	a := addrmon.NewAddrMon(log.WithField("component", "addrmon"))
	if err := a.Start(); err != nil {
		log.WithError(err).Fatal("could not start AddrMon")
	}
	for {
		select {
		case u := <-d.Updates():
			log.Println(u)
		case u := <-a.Updates():
			log.Println(u)
		}
	}
}
