// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

//go:build !igdebug

package device

// Release builds ignore _d suffixed device modules.
const debugBuild = false
