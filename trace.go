// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package iou

import "github.com/hashicorp/go-hclog"

// logger receives incredibly verbose IOU settlement output, at the Trace
// level. It discards everything by default.
var logger hclog.Logger = hclog.NewNullLogger()

// SetLogger redirects the package's trace output to l.
// Passing nil restores the default, discarding logger.
//
// It's meant to be called once, during program initialization, before any
// IOU is created. It is not safe to call concurrently with other calls of
// this package.
func SetLogger(l hclog.Logger) {
	if l == nil {
		logger = hclog.NewNullLogger()
		return
	}
	logger = l
}
