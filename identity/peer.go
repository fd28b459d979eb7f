// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

// Peer is (name, network_address). The canonical Peer record lives in
// the members table and is looked up by Name elsewhere, so EldersInfo and
// other value types only ever hold a Peer by value, never a live
// connection handle.
type Peer struct {
	Name    Name
	Address string
}
