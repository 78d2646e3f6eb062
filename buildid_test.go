// This file is part of cxxsym.
//
// Copyright (C) 2019-2026 GoRE Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cxxsym

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goretk/cxxsym/internal/elftest"
)

func TestParseBuildIDElf(t *testing.T) {
	assert := assert.New(t)
	id := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04}

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		actual, err := parseBuildIDFromElf(elftest.BuildIDNote(order, id), order)
		assert.NoError(err, "Parsing the note should not fail.")
		assert.Equal("deadbeef01020304", actual, "Extracted ID does not match.")
	}
}

func TestParseBuildIDElfErrors(t *testing.T) {
	assert := assert.New(t)
	note := elftest.BuildIDNote(binary.LittleEndian, []byte{1, 2, 3, 4})

	_, err := parseBuildIDFromElf(note[:6], binary.LittleEndian)
	assert.Error(err, "Truncated header")

	_, err = parseBuildIDFromElf(note[:len(note)-1], binary.LittleEndian)
	assert.Error(err, "Truncated descriptor")

	wrongTag := bytes.Clone(note)
	binary.LittleEndian.PutUint32(wrongTag[8:], 4)
	_, err = parseBuildIDFromElf(wrongTag, binary.LittleEndian)
	assert.Error(err, "Go build ID note type")

	wrongName := bytes.Clone(note)
	copy(wrongName[12:], "Go\x00\x00")
	_, err = parseBuildIDFromElf(wrongName, binary.LittleEndian)
	assert.Error(err, "Note from another vendor")
}
