// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/dworznik/bcoin/logs"

// log is the package-wide logger, silent until the embedding program
// wires it up with UseLogger.
var log = logs.NewLogger(logs.NewBackend(), "MEMP", logs.LevelInfo)

// UseLogger configures mempool to write through logger instead of its
// default, silent one.
func UseLogger(logger *logs.Logger) { log = logger }
