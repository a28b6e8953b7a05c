// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package iou

import (
	"strings"
	"sync"
)

// callRecorder records handler invocations, in order, for assertions.
// It's safe for concurrent use.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(place string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, place)
}

func (r *callRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

func (r *callRecorder) summary() string {
	return strings.Join(r.recorded(), "|")
}

// handler returns a Handler that records place and returns res.
func (r *callRecorder) handler(place string, res any) Handler {
	return func(payload any) (any, error) {
		r.record(place)
		return res, nil
	}
}
