// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import "github.com/dworznik/bcoin/logs"

var log = logs.NewLogger(logs.NewBackend(), "PEER", logs.LevelInfo)

// UseLogger lets a caller replace the package-wide logger, e.g. to route it
// into a shared multi-subsystem backend.
func UseLogger(logger *logs.Logger) { log = logger }
