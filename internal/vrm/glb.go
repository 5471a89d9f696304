package vrm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// GLB container layout: a 12-byte header (magic "glTF", u32 version, u32
// total length) followed by chunks of (u32 length, u32 type, payload).
const (
	glbMagic      = "glTF"
	chunkTypeJSON = 0x4E4F534A // "JSON"
	chunkTypeBIN  = 0x004E4942 // "BIN\0"
)

// ParseGLB splits a binary glTF container into its JSON and BIN chunks.
// Chunk types other than JSON and BIN are skipped; a truncated trailing
// chunk ends the scan rather than failing the whole parse.
func ParseGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("vrm: %d bytes is too small to be a GLB container", len(data))
	}
	if string(data[0:4]) != glbMagic {
		return nil, nil, errors.New("vrm: invalid GLB magic number")
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != 2 {
		return nil, nil, fmt.Errorf("vrm: unsupported GLB version %d", version)
	}

	offset := 12
	for offset+8 <= len(data) {
		length := int(binary.LittleEndian.Uint32(data[offset:]))
		chunkType := binary.LittleEndian.Uint32(data[offset+4:])
		offset += 8
		if length < 0 || offset+length > len(data) {
			break
		}
		switch chunkType {
		case chunkTypeJSON:
			jsonChunk = data[offset : offset+length]
		case chunkTypeBIN:
			binChunk = data[offset : offset+length]
		}
		offset += length
	}
	return jsonChunk, binChunk, nil
}
