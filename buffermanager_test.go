// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBufferManager(t *testing.T) {
	m, err := NewBufferManager(0, 1024)
	require.NoError(t, err)
	assert.IsType(t, gcBufferManager{}, m)

	_, err = NewBufferManager(-1, 0)
	assert.ErrorIs(t, err, ErrArgumentOutOfRange)
	_, err = NewBufferManager(1, -1)
	assert.ErrorIs(t, err, ErrArgumentOutOfRange)

	m, err = NewBufferManager(1<<16, 1000)
	require.NoError(t, err)
	p := m.(*pooledBufferManager)
	assert.Len(t, p.classes, 4, "128, 256, 512 and 1024 byte classes")
}

func TestPooledBufferManagerClasses(t *testing.T) {
	m := newPooledBufferManager(1<<16, 1000)
	cases := []struct {
		size, want int
	}{
		{0, 128},
		{128, 128},
		{129, 256},
		{1000, 1024},
		{1001, 1001},
	}
	for _, c := range cases {
		assert.Len(t, m.TakeBuffer(c.size), c.want, "TakeBuffer(%d)", c.size)
	}
}

func TestPooledBufferManagerReuse(t *testing.T) {
	m := newPooledBufferManager(1<<16, 1<<12)
	b := m.TakeBuffer(300)
	require.Len(t, b, 512)
	m.ReturnBuffer(b)
	again := m.TakeBuffer(400)
	assert.Same(t, &b[0], &again[0], "returned buffer is reused")

	top := m.TakeBuffer(1 << 12)
	m.ReturnBuffer(top)
	assert.Same(t, &top[0], &m.TakeBuffer(4000)[0], "top class is pooled")

	m.ReturnBuffer(make([]byte, 300))
	m.ReturnBuffer(make([]byte, 64))
	m.ReturnBuffer(make([]byte, 1<<13))
	fresh := m.TakeBuffer(300)
	assert.Len(t, fresh, 512, "odd-sized buffers are not pooled")
}

func TestPooledBufferManagerClear(t *testing.T) {
	m := newPooledBufferManager(1<<16, 1<<12)
	b := m.TakeBuffer(128)
	m.ReturnBuffer(b)
	m.Clear()
	assert.NotSame(t, &b[0], &m.TakeBuffer(128)[0])
}
