// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

// Package reactor runs submitted tasks on a worker goroutine and settles an
// IOU per task, which is the asynchrony seam the iou package itself
// deliberately doesn't provide: the core dispatches handlers synchronously
// on whatever goroutine settles, and here that's the reactor worker.
//
// Tasks wait in per-priority FIFO queues(High, Normal, Background) and the
// worker depletes higher priorities first. Transports plug in through the
// Executor interface; the HTTP one, HTTPExecutor, is included.
package reactor
