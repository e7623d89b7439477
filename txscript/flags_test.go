// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "testing"

func TestHasFlag(t *testing.T) {
	flags := ScriptBip16 | ScriptVerifyWitness
	if !flags.HasFlag(ScriptBip16) {
		t.Fatalf("HasFlag(ScriptBip16) = false, want true")
	}
	if flags.HasFlag(ScriptVerifyCleanStack) {
		t.Fatalf("HasFlag(ScriptVerifyCleanStack) = true, want false")
	}
}

func TestStandardFlagsSupersetOfMandatory(t *testing.T) {
	// Every bit mandatory for consensus must also be part of the relay
	// policy set; policy only ever adds standardness-only rules on top.
	if StandardVerifyFlags&MandatoryVerifyFlags != MandatoryVerifyFlags {
		t.Fatalf("StandardVerifyFlags does not include all of MandatoryVerifyFlags")
	}
}

func TestMandatoryFlagsExcludeCleanStack(t *testing.T) {
	if MandatoryVerifyFlags.HasFlag(ScriptVerifyCleanStack) {
		t.Fatalf("MandatoryVerifyFlags unexpectedly includes ScriptVerifyCleanStack")
	}
}
