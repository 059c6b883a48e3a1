// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

//go:build igdebug

package device

// Debug builds require the _d suffix on device modules.
const debugBuild = true
