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
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// Upper bound for the decompressed .gnu_debugdata payload.
const maxMiniDebugInfoSize = 512 << 20

// openMiniDebugInfo decompresses the ELF object stored in .gnu_debugdata.
func (e *elfFile) openMiniDebugInfo() (*elfFile, error) {
	data, err := e.sectionDataByName(".gnu_debugdata")
	if err != nil {
		return nil, err
	}
	reader, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error when opening the xz stream: %w", err)
	}
	var uncompressed bytes.Buffer
	n, err := io.Copy(&uncompressed, io.LimitReader(reader, maxMiniDebugInfoSize+1))
	if err != nil {
		return nil, fmt.Errorf("error when decompressing: %w", err)
	}
	if n > maxMiniDebugInfoSize {
		return nil, formatError("mini debug info exceeds %d bytes", maxMiniDebugInfoSize)
	}
	inner, err := parseELF(bytes.NewReader(uncompressed.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("embedded object: %w", err)
	}
	return inner, nil
}
