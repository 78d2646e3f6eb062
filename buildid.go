// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const ntGNUBuildID = 3

var gnuNoteName = []byte("GNU\x00")

func (e *elfFile) gnuBuildID() (string, error) {
	data, err := e.sectionDataByName(".note.gnu.build-id")
	if err != nil {
		return "", err
	}
	return parseBuildIDFromElf(data, e.order)
}

func parseBuildIDFromElf(data []byte, byteOrder binary.ByteOrder) (string, error) {
	r := bytes.NewReader(data)
	var nameLen uint32
	var idLen uint32
	var tag uint32
	err := binary.Read(r, byteOrder, &nameLen)
	if err != nil {
		return "", fmt.Errorf("error when reading the BuildID name length: %w", err)
	}
	err = binary.Read(r, byteOrder, &idLen)
	if err != nil {
		return "", fmt.Errorf("error when reading the BuildID ID length: %w", err)
	}
	err = binary.Read(r, byteOrder, &tag)
	if err != nil {
		return "", fmt.Errorf("error when reading the BuildID tag: %w", err)
	}

	if tag != ntGNUBuildID {
		return "", fmt.Errorf("build ID does not match expected value. 0x%x parsed", tag)
	}

	// The descriptor starts at the next 4 byte boundary after the name.
	descStart := 12 + (int(nameLen)+3)&^3
	if 12+int(nameLen) > len(data) || descStart+int(idLen) > len(data) {
		return "", fmt.Errorf("build ID note is truncated")
	}
	noteName := data[12 : 12+int(nameLen)]
	if !bytes.Equal(noteName, gnuNoteName) {
		return "", fmt.Errorf("note name not as expected")
	}
	return hex.EncodeToString(data[descStart : descStart+int(idLen)]), nil
}
