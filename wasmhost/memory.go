package wasmhost

import (
	"context"
	"sync"

	translatorbridge "github.com/wippyai/translator-bridge"
	"github.com/wippyai/translator-bridge/errors"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// guestMemory adapts wazero memory to translatorbridge.Memory.
type guestMemory struct {
	mem api.Memory
}

var (
	_ translatorbridge.Memory      = (*guestMemory)(nil)
	_ translatorbridge.MemorySizer = (*guestMemory)(nil)
)

func (m *guestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseBoundary, "read", offset, length)
	}
	return data, nil
}

func (m *guestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseMarshal, "write", offset, uint32(len(data)))
	}
	return nil
}

func (m *guestMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseBoundary, "read u32", offset, 4)
	}
	return v, nil
}

func (m *guestMemory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseBoundary, "read u64", offset, 8)
	}
	return v, nil
}

func (m *guestMemory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseMarshal, "write u8", offset, 1)
	}
	return nil
}

func (m *guestMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMarshal, "write u32", offset, 4)
	}
	return nil
}

func (m *guestMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMarshal, "write u64", offset, 8)
	}
	return nil
}

func (m *guestMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// reallocAllocator allocates through the guest's cabi_realloc export.
type reallocAllocator struct {
	ctx   context.Context
	fn    api.Function
	log   *zap.Logger
	stack [4]uint64
	mu    sync.Mutex
}

var _ translatorbridge.Allocator = (*reallocAllocator)(nil)

func (a *reallocAllocator) Alloc(size, align uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stack[0] = 0
	a.stack[1] = 0
	a.stack[2] = uint64(align)
	a.stack[3] = uint64(size)
	if err := a.fn.CallWithStack(a.ctx, a.stack[:]); err != nil {
		return 0, errors.Wrap(errors.PhaseMarshal, errors.KindAllocation, err, "cabi_realloc")
	}
	ptr := uint32(a.stack[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseMarshal, size, align)
	}
	return ptr, nil
}

func (a *reallocAllocator) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stack[0] = uint64(ptr)
	a.stack[1] = uint64(size)
	a.stack[2] = uint64(align)
	a.stack[3] = 0
	if err := a.fn.CallWithStack(a.ctx, a.stack[:]); err != nil {
		a.log.Warn("Free: failed to call cabi_realloc for deallocation",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}
