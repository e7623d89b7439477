// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import "github.com/dworznik/bcoin/logs"

var log = logs.NewLogger(logs.NewBackend(), "SYNC", logs.LevelInfo)

func UseLogger(logger *logs.Logger) { log = logger }
