// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import "time"

// Canonical scan ranges.
const (
	QuickScanFirst = 1
	QuickScanLast  = 20
	FullScanFirst  = 1
	FullScanLast   = 252
)

// DeviceInfo is one discovery hit.
type DeviceInfo struct {
	ID              uint8
	ModelNumber     uint16
	FirmwareVersion uint8
	ModelName       string
}

// ScanProgress reports one finished probe to the scan's observer.
type ScanProgress struct {
	ID      uint8
	Scanned int
	Total   int
	Found   *DeviceInfo // nil when the id did not answer cleanly
	Err     error       // nil on success or plain timeout
}

// Scan probes every id in [first, last] with a bounded-timeout ping and
// returns the devices that answered, in id order.
//
// Probing is strictly sequential: the bus is half-duplex, and concurrent
// pings would make reply-to-id correlation ambiguous. A timeout means "no
// device here" and is swallowed; any other failure at one id is reported
// through progress but never aborts the scan.
func (c *Conn) Scan(first, last uint8, perIDTimeout time.Duration, progress func(ScanProgress)) []DeviceInfo {
	if last < first {
		return nil
	}
	total := int(last) - int(first) + 1

	var found []DeviceInfo
	scanned := 0
	for id := int(first); id <= int(last); id++ {
		scanned++
		p := ScanProgress{ID: uint8(id), Scanned: scanned, Total: total}

		info, err := c.Ping(uint8(id), perIDTimeout)
		switch {
		case err == nil:
			hit := DeviceInfo{
				ID:              uint8(id),
				ModelNumber:     info.ModelNumber,
				FirmwareVersion: info.FirmwareVersion,
				ModelName:       ModelName(info.ModelNumber),
			}
			found = append(found, hit)
			p.Found = &hit
		case IsTimeout(err):
			// Nothing at this id.
		default:
			p.Err = err
		}

		if progress != nil {
			progress(p)
		}
	}
	return found
}

// QuickScan probes the low id range where factory-fresh devices live.
func (c *Conn) QuickScan(perIDTimeout time.Duration, progress func(ScanProgress)) []DeviceInfo {
	return c.Scan(QuickScanFirst, QuickScanLast, perIDTimeout, progress)
}

// FullScan probes every assignable id.
func (c *Conn) FullScan(perIDTimeout time.Duration, progress func(ScanProgress)) []DeviceInfo {
	return c.Scan(FullScanFirst, FullScanLast, perIDTimeout, progress)
}
