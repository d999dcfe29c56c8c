// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package chanrt

// NewNativePoster is not available on this platform; schedulers fall back
// to NewDedicatedPoster.
func NewNativePoster(workers int) (Poster, error) {
	return nil, errNativeUnsupported
}
