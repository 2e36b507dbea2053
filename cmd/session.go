// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"fmt"
	"os"

	"github.com/kinetolab/dxl/pkg/bus"
	"github.com/kinetolab/dxl/pkg/capture"
	"github.com/kinetolab/dxl/pkg/proto2"
)

// busSession ties a byte connection to a bus.Conn: a transport for
// outbound packets, a reader pump feeding inbound bytes, and an optional
// capture tap recording both directions.
type busSession struct {
	conn     Connection
	bus      *bus.Conn
	connInfo string

	capFile *os.File
	capture *capture.Writer
}

// busTransport forwards packets to the connection and records them.
type busTransport struct {
	conn Connection
	cap  *capture.Writer
}

func (t *busTransport) Send(data []byte) error {
	if t.cap != nil {
		if err := t.cap.Tx(data); err != nil {
			return err
		}
	}
	_, err := t.conn.Write(data)
	return err
}

// openBus opens the flag-selected connection and starts the reader pump.
func openBus() (*busSession, error) {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return nil, err
	}

	s := &busSession{conn: conn, connInfo: connInfo}
	if captureFile != "" {
		f, err := os.Create(captureFile)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create capture file: %w", err)
		}
		s.capFile = f
		s.capture = capture.NewWriter(f)
	}

	s.bus = bus.NewConn(&busTransport{conn: conn, cap: s.capture})
	go s.pump()
	return s, nil
}

// pump moves bytes from the connection into the correlator until the
// connection dies. With capture enabled, a private reassembler decodes
// the same stream so each recorded frame carries its parsed summary.
func (s *busSession) pump() {
	var tap *proto2.Reassembler
	if s.capture != nil {
		tap = proto2.NewReassembler(func(pkt *proto2.StatusPacket, err error) {
			if err != nil {
				s.capture.Rx(nil, 0, 0, 0, err)
				return
			}
			s.capture.Rx(pkt.Params, pkt.ID, pkt.Instruction, pkt.Error, nil)
		})
	}

	buf := make([]byte, 256)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			s.bus.Close()
			return
		}
		if n == 0 {
			continue
		}
		s.bus.Receive(buf[:n])
		if tap != nil {
			tap.Feed(buf[:n])
		}
	}
}

func (s *busSession) Close() {
	s.bus.Close()
	s.conn.Close()
	if s.capFile != nil {
		s.capFile.Close()
	}
}
