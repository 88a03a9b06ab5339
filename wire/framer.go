// ev3pipe
// Copyright (c) 2026 The ev3pipe Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of ev3pipe.
//
// ev3pipe is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// ev3pipe is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with ev3pipe; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package wire

// FramerConfig tunes the shared re-framer used by every length-prefixed
// transport (Bluetooth SPP, TCP) and, with report-id skipping and a
// frame-length bound enabled, USB HID.
type FramerConfig struct {
	// ReportID, when SkipLeadingReportID is set, is dropped from the
	// front of the buffer whenever it is followed by more bytes.
	ReportID byte
	// MaxFrameLength rejects (by discarding one byte and retrying) any
	// declared bodyLength whose total frame size would exceed it. Zero
	// means unbounded.
	MaxFrameLength int
	// SkipLeadingReportID enables the HID report-id-stripping rule.
	SkipLeadingReportID bool
}

// Extract pulls as many complete packets as possible out of buf according
// to cfg, returning the decoded packets found in order and the remainder
// of buf that did not yet form a complete frame (the caller prepends this
// to whatever it reads next). It is pure: no I/O, no allocation beyond the
// returned slices' backing arrays.
//
// This is the "(buffer, config) -> (packets, remainder)" extraction point
// spec.md's design notes (§9) ask implementations to share between the
// HID and length-prefixed adapters. Extract itself applies the
// leading-report-id rule (when cfg enables it) and always skips padding
// bytes that declare a body length below 3.
func Extract(buf []byte, cfg FramerConfig) (packets []Packet, remainder []byte) {
	for {
		if cfg.SkipLeadingReportID && len(buf) > 1 && buf[0] == cfg.ReportID {
			buf = buf[1:]
			continue
		}

		if len(buf) < 2 {
			return packets, buf
		}

		bodyLength, err := BodyLength(buf)
		if err != nil {
			return packets, buf
		}

		total := bodyLength + 2
		if bodyLength < 3 || (cfg.MaxFrameLength > 0 && total > cfg.MaxFrameLength) {
			// Padding byte (HID reports are zero-padded) or garbage;
			// drop one byte and keep hunting for a real frame start.
			buf = buf[1:]
			continue
		}

		if len(buf) < total {
			// Not enough bytes yet for a complete frame.
			return packets, buf
		}

		pkt, err := Decode(buf[:total])
		if err != nil {
			// Shouldn't happen given the checks above, but stay
			// resilient: drop a byte and keep scanning rather than
			// wedge the stream.
			buf = buf[1:]
			continue
		}

		packets = append(packets, pkt)
		buf = buf[total:]
	}
}
