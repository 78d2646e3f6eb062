// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

import (
	"slices"
	"strconv"

	"github.com/samber/lo"
)

// DiffResult lists the method signatures that differ between two reports.
type DiffResult struct {
	Old string `json:"old"`
	New string `json:"new"`
	// OldFingerprint and NewFingerprint identify the signature sets.
	OldFingerprint string `json:"old_fingerprint"`
	NewFingerprint string `json:"new_fingerprint"`
	// Added holds the signatures only in the new report, Removed those only
	// in the old one. Both are sorted.
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Empty reports whether both reports have the same signatures.
func (d *DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Diff compares the method signatures of two reports. Offsets are not part
// of a signature, so a method that moved is not a difference. A renamed
// method is one removal and one addition.
func Diff(oldReport, newReport *Report) *DiffResult {
	oldSigs, newSigs := oldReport.Signatures(), newReport.Signatures()
	oldFP, newFP := fingerprint(oldSigs), fingerprint(newSigs)
	d := &DiffResult{
		Old:            oldReport.LibraryName,
		New:            newReport.LibraryName,
		OldFingerprint: formatFingerprint(oldFP),
		NewFingerprint: formatFingerprint(newFP),
		Added:          []string{},
		Removed:        []string{},
	}
	// Signatures are sorted and unique, so equal sets are equal slices.
	if oldFP == newFP && slices.Equal(oldSigs, newSigs) {
		return d
	}
	removed, added := lo.Difference(oldSigs, newSigs)
	if len(added) > 0 {
		d.Added = added
	}
	if len(removed) > 0 {
		d.Removed = removed
	}
	slices.Sort(d.Added)
	slices.Sort(d.Removed)
	return d
}

func formatFingerprint(fp uint64) string {
	s := strconv.FormatUint(fp, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
