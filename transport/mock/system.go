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

package mock

import (
	"github.com/ev3cockpit/ev3pipe/bytecode"
	"github.com/ev3cockpit/ev3pipe/wire"
)

// System command opcodes recognised by the responder (spec.md §4.11).
const (
	sysBeginDownload     = 0x92
	sysContinueDownload  = 0x93
	sysBeginUpload       = 0x94
	sysContinueUpload    = 0x95
	sysCloseFilehandle   = 0x98
	sysListFiles         = 0x99
	sysContinueListFiles = 0x9a
	sysCreateDir         = 0x9b
	sysDeleteFile        = 0x9c

	sysReplyOK  = 0x00
	sysReplyErr = 0x01
)

// pendingUpload/pendingListing track a multi-fragment BEGIN_*/CONTINUE_*
// exchange, keyed by the handle returned from BEGIN_*.
type pendingUpload struct {
	data []byte
	sent int
}

type pendingListing struct {
	text string
	sent int
}

// fsState holds the mock filesystem's open-handle bookkeeping. Each
// World owns one, created lazily by fsStateFor and kept in its
// fsHandles field.
type fsState struct {
	uploads         map[int]*pendingUpload
	listings        map[int]*pendingListing
	downloadTargets map[int]string
}

func (w *World) fsStateFor() *fsState {
	if w.fsHandles == nil {
		w.fsHandles = &fsState{
			uploads:         map[int]*pendingUpload{},
			listings:        map[int]*pendingListing{},
			downloadTargets: map[int]string{},
		}
	}
	return w.fsHandles
}

// respondSystem handles the system-command subset in spec.md §4.11: file
// listing, upload/download fragment transfer, directory/file mutation.
func respondSystem(world *World, pkt wire.Packet) (wire.Packet, error) {
	if len(pkt.Payload) == 0 {
		return wire.Packet{Counter: pkt.Counter, Type: wire.SystemReply, Payload: []byte{sysReplyErr}}, nil
	}
	cmd := pkt.Payload[0]
	body := pkt.Payload[1:]
	fs := world.fsStateFor()

	switch cmd {
	case sysListFiles:
		return listFiles(world, fs, pkt.Counter, body)
	case sysContinueListFiles:
		return continueListing(fs, pkt.Counter, body)
	case sysBeginUpload:
		return beginUpload(world, fs, pkt.Counter, body)
	case sysContinueUpload:
		return continueUpload(fs, pkt.Counter, body)
	case sysBeginDownload:
		return beginDownload(world, fs, pkt.Counter, body)
	case sysContinueDownload:
		return continueDownload(world, fs, pkt.Counter, body)
	case sysCloseFilehandle:
		return closeHandle(fs, pkt.Counter, body)
	case sysCreateDir:
		return createDir(world, pkt.Counter, body)
	case sysDeleteFile:
		return deleteFile(world, pkt.Counter, body)
	default:
		return wire.Packet{Counter: pkt.Counter, Type: wire.SystemReplyError, Payload: []byte{cmd, sysReplyErr}}, nil
	}
}

func systemOK(counter uint16, cmd byte, rest []byte) wire.Packet {
	payload := append([]byte{cmd, sysReplyOK}, rest...)
	return wire.Packet{Counter: counter, Type: wire.SystemReply, Payload: payload}
}

func systemErr(counter uint16, cmd byte) wire.Packet {
	return wire.Packet{Counter: counter, Type: wire.SystemReplyError, Payload: []byte{cmd, sysReplyErr}}
}

func readPathArg(body []byte) (string, bool) {
	r := bytecode.NewReader(body)
	s, err := r.ReadString()
	if err != nil {
		return "", false
	}
	return s, true
}

func listFiles(world *World, fs *fsState, counter uint16, body []byte) (wire.Packet, error) {
	// MAX_PATH_LENGTH byte, then the path string.
	if len(body) < 1 {
		return systemErr(counter, sysListFiles), nil
	}
	path, ok := readPathArg(body[1:])
	if !ok {
		return systemErr(counter, sysListFiles), nil
	}
	listing, err := world.Fs.List(path)
	if err != nil {
		return systemErr(counter, sysListFiles), nil
	}
	handle := world.nextHandle()
	fs.listings[handle] = &pendingListing{text: listing}
	return systemOK(counter, sysListFiles, bytecode.ConcatBytes(
		[]byte{byte(handle)},
		bytecode.Uint16LE(uint16(len(listing))),
		[]byte(listing),
	)), nil
}

func continueListing(fs *fsState, counter uint16, body []byte) (wire.Packet, error) {
	if len(body) < 1 {
		return systemErr(counter, sysContinueListFiles), nil
	}
	handle := int(body[0])
	p, ok := fs.listings[handle]
	if !ok {
		return systemErr(counter, sysContinueListFiles), nil
	}
	chunk := p.text[p.sent:]
	p.sent = len(p.text)
	return systemOK(counter, sysContinueListFiles, []byte(chunk)), nil
}

func beginUpload(world *World, fs *fsState, counter uint16, body []byte) (wire.Packet, error) {
	if len(body) < 2 {
		return systemErr(counter, sysBeginUpload), nil
	}
	path, ok := readPathArg(body[2:])
	if !ok {
		return systemErr(counter, sysBeginUpload), nil
	}
	data, ok := world.Fs.ReadFile(path)
	if !ok {
		return systemErr(counter, sysBeginUpload), nil
	}
	handle := world.nextHandle()
	fs.uploads[handle] = &pendingUpload{data: data}
	return systemOK(counter, sysBeginUpload, bytecode.ConcatBytes(
		bytecode.Uint16LE(uint16(len(data))),
		[]byte{byte(handle)},
	)), nil
}

func continueUpload(fs *fsState, counter uint16, body []byte) (wire.Packet, error) {
	if len(body) < 1 {
		return systemErr(counter, sysContinueUpload), nil
	}
	handle := int(body[0])
	p, ok := fs.uploads[handle]
	if !ok {
		return systemErr(counter, sysContinueUpload), nil
	}
	chunk := p.data[p.sent:]
	p.sent = len(p.data)
	return systemOK(counter, sysContinueUpload, bytecode.ConcatBytes([]byte{byte(handle)}, chunk)), nil
}

func beginDownload(world *World, fs *fsState, counter uint16, body []byte) (wire.Packet, error) {
	if len(body) < 4 {
		return systemErr(counter, sysBeginDownload), nil
	}
	size, err := bytecode.ReadUint32LE(body, 0)
	if err != nil {
		return systemErr(counter, sysBeginDownload), nil
	}
	path, ok := readPathArg(body[4:])
	if !ok {
		return systemErr(counter, sysBeginDownload), nil
	}
	handle := world.nextHandle()
	fs.uploads[handle] = &pendingUpload{data: make([]byte, 0, size)}
	fs.downloadTargets[handle] = path
	return systemOK(counter, sysBeginDownload, []byte{byte(handle)}), nil
}

func continueDownload(world *World, fs *fsState, counter uint16, body []byte) (wire.Packet, error) {
	if len(body) < 1 {
		return systemErr(counter, sysContinueDownload), nil
	}
	handle := int(body[0])
	p, ok := fs.uploads[handle]
	if !ok {
		return systemErr(counter, sysContinueDownload), nil
	}
	p.data = append(p.data, body[1:]...)
	if path, ok := fs.downloadTargets[handle]; ok {
		_ = world.Fs.WriteFile(path, p.data)
	}
	return systemOK(counter, sysContinueDownload, []byte{byte(handle)}), nil
}

func closeHandle(fs *fsState, counter uint16, body []byte) (wire.Packet, error) {
	if len(body) < 1 {
		return systemErr(counter, sysCloseFilehandle), nil
	}
	handle := int(body[0])
	delete(fs.uploads, handle)
	delete(fs.listings, handle)
	delete(fs.downloadTargets, handle)
	return systemOK(counter, sysCloseFilehandle, nil), nil
}

func createDir(world *World, counter uint16, body []byte) (wire.Packet, error) {
	path, ok := readPathArg(body)
	if !ok {
		return systemErr(counter, sysCreateDir), nil
	}
	if err := world.Fs.Mkdir(path); err != nil {
		return systemErr(counter, sysCreateDir), nil
	}
	return systemOK(counter, sysCreateDir, nil), nil
}

func deleteFile(world *World, counter uint16, body []byte) (wire.Packet, error) {
	path, ok := readPathArg(body)
	if !ok {
		return systemErr(counter, sysDeleteFile), nil
	}
	if err := world.Fs.Delete(path); err != nil {
		return systemErr(counter, sysDeleteFile), nil
	}
	return systemOK(counter, sysDeleteFile, nil), nil
}
