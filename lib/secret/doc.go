// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for key material, used
// by the recording container's encryption.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, guaranteeing key material does not persist after release.
//
// [LoadKeyFile] reads a 32-byte key file into a Buffer, rejecting
// files readable by group or world.
package secret
