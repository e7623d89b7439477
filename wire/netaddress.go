// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"net"
	"time"
)

// ServiceFlag identifies the services supported by a peer.
type ServiceFlag uint64

const (
	SFNodeNetwork ServiceFlag = 1 << iota
	SFNodeGetUTXO
	SFNodeBloom
	SFNodeWitness
	SFNodeNetworkLimited
)

// maxNetAddressPayload is services (8) + ip (16) + port (2) + timestamp (4).
const maxNetAddressPayload = 30

// NetAddress describes a peer: when it was last seen, the services it
// advertises, and its IP/port.
type NetAddress struct {
	Timestamp time.Time
	Services  ServiceFlag
	IP        net.IP
	Port      uint16
}

// HasService returns whether the specified service is supported by the address.
func (na *NetAddress) HasService(service ServiceFlag) bool {
	return na.Services&service == service
}

// AddService marks service as supported by the address.
func (na *NetAddress) AddService(service ServiceFlag) {
	na.Services |= service
}

// NewNetAddressIPPort builds a NetAddress from an IP, port and service set.
func NewNetAddressIPPort(ip net.IP, port uint16, services ServiceFlag) *NetAddress {
	return &NetAddress{Timestamp: time.Now(), Services: services, IP: ip, Port: port}
}

func readNetAddress(r io.Reader, na *NetAddress, ts bool) error {
	var ip [16]byte
	if ts {
		var secs uint32
		if err := readElement(r, &secs); err != nil {
			return err
		}
		na.Timestamp = time.Unix(int64(secs), 0)
	}
	if err := readElement(r, &na.Services); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return err
	}
	var port uint16
	if err := readElement(r, &port); err != nil { // big-endian below via swapUint16
		return err
	}
	na.IP = net.IP(append([]byte(nil), ip[:]...))
	na.Port = swapUint16(port)
	return nil
}

func writeNetAddress(w io.Writer, na *NetAddress, ts bool) error {
	if ts {
		if err := writeElement(w, uint32(na.Timestamp.Unix())); err != nil {
			return err
		}
	}
	if err := writeElement(w, na.Services); err != nil {
		return err
	}
	var ip [16]byte
	if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}
	return writeElement(w, swapUint16(na.Port))
}

// swapUint16 flips byte order: the port field is the one big-endian
// exception in an otherwise little-endian protocol.
func swapUint16(v uint16) uint16 {
	return v<<8 | v>>8
}
