// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package xadapt

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Device is an open handle on one CPU's configuration item file. The
// file descriptor stays open for the Device's lifetime so per-sample
// reads cost a single positioned read, not an open/read/close cycle.
//
// Device is safe for concurrent use: positioned reads and writes carry
// their own offset and never touch the shared file position.
type Device struct {
	cpu      int
	file     *os.File
	readOnly bool
}

// OpenCPU opens <root>/cpu/<cpu>. The device is opened read-write
// when permissions allow, falling back to read-only; SetValue reports
// an error on a read-only handle.
func OpenCPU(root string, cpu int) (*Device, error) {
	path := filepath.Join(root, "cpu", strconv.Itoa(cpu))
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err == nil {
		return &Device{cpu: cpu, file: file}, nil
	}

	file, readErr := os.OpenFile(path, os.O_RDONLY, 0)
	if readErr != nil {
		return nil, fmt.Errorf("xadapt: opening cpu %d device: %w", cpu, readErr)
	}
	return &Device{cpu: cpu, file: file, readOnly: true}, nil
}

// CPU returns the CPU index this device belongs to.
func (d *Device) CPU() int { return d.cpu }

// ReadValue reads the current 8-byte value of an item.
func (d *Device) ReadValue(item Item) (uint64, error) {
	var buffer [8]byte
	if _, err := d.file.ReadAt(buffer[:], int64(item.Index)*8); err != nil {
		return 0, fmt.Errorf("xadapt: reading %s (slot %d) on cpu %d: %w", item.Name, item.Index, d.cpu, err)
	}
	return binary.LittleEndian.Uint64(buffer[:]), nil
}

// SetValue writes a new value to a writable item. The kernel module
// applies the change immediately.
func (d *Device) SetValue(item Item, value uint64) error {
	if !item.Writable {
		return fmt.Errorf("xadapt: item %s is read-only", item.Name)
	}
	if d.readOnly {
		return fmt.Errorf("xadapt: cpu %d device is opened read-only, cannot write %s", d.cpu, item.Name)
	}
	var buffer [8]byte
	binary.LittleEndian.PutUint64(buffer[:], value)
	if _, err := d.file.WriteAt(buffer[:], int64(item.Index)*8); err != nil {
		return fmt.Errorf("xadapt: writing %s (slot %d) on cpu %d: %w", item.Name, item.Index, d.cpu, err)
	}
	return nil
}

// Close releases the device file descriptor. The Device must not be
// used afterwards.
func (d *Device) Close() error {
	return d.file.Close()
}
