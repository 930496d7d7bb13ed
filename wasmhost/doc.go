// Package wasmhost exposes a bridge.Bridge to WebAssembly guests as the
// host module "translator".
//
// Strings and byte buffers cross as (ptr, len) i32 pairs, handles as i64
// and booleans as i32. Functions returning a host value return an i32
// pointer into guest memory, 0 meaning null: objects point at their
// record, strings and lists at an 8-byte (ptr, len) cell. Result memory
// is obtained from the guest's cabi_realloc export and owned by the guest
// once returned.
//
//	rt := wazero.NewRuntime(ctx)
//	if _, err := wasmhost.New(b).Instantiate(ctx, rt); err != nil {
//		return err
//	}
//	guest, err := rt.Instantiate(ctx, wasmBytes)
package wasmhost
