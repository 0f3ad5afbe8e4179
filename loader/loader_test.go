package loader

import (
	"testing"

	"github.com/opcode65/sim65dbg/cpu"
	"github.com/opcode65/sim65dbg/hostabi"
	"github.com/opcode65/sim65dbg/memory"
)

func TestLoadRawImageUsesDefaults(t *testing.T) {
	mem := &memory.Memory{}
	image := []byte{0xA9, 0x42, 0x60} // LDA #$42; RTS

	r, err := Load(mem, image, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.LoadAddr != defaultLoadAddr {
		t.Fatalf("LoadAddr=0x%04X, want 0x%04X", r.LoadAddr, defaultLoadAddr)
	}
	if r.ResetAddr != defaultLoadAddr {
		t.Fatalf("ResetAddr=0x%04X, want 0x%04X", r.ResetAddr, defaultLoadAddr)
	}
	if r.CPUType != cpu.Variant6502 {
		t.Fatalf("CPUType=%v, want Variant6502", r.CPUType)
	}
	if mem.Read(defaultLoadAddr) != 0xA9 {
		t.Fatalf("payload not placed at load address")
	}
	if got := mem.ReadWord(cpu.ResetVector); got != defaultLoadAddr {
		t.Fatalf("reset vector=0x%04X, want 0x%04X", got, defaultLoadAddr)
	}
}

func TestLoadHeaderedImage(t *testing.T) {
	mem := &memory.Memory{}
	image := []byte{
		's', 'i', 'm', '6', '5',
		1,            // version
		1,            // CPU = 65C02
		0x80,         // sp-zp
		0x00, 0x08,   // load addr $0800
		0x10, 0x08,   // reset addr $0810
		0xEA, 0xEA, 0xEA, // payload: NOP NOP NOP
	}

	r, err := Load(mem, image, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.LoadAddr != 0x0800 {
		t.Fatalf("LoadAddr=0x%04X, want 0x0800", r.LoadAddr)
	}
	if r.ResetAddr != 0x0810 {
		t.Fatalf("ResetAddr=0x%04X, want 0x0810", r.ResetAddr)
	}
	if r.SPAddr != 0x80 {
		t.Fatalf("SPAddr=0x%02X, want 0x80", r.SPAddr)
	}
	if r.CPUType != cpu.Variant65C02 {
		t.Fatalf("CPUType=%v, want Variant65C02", r.CPUType)
	}
	if mem.Read(0x0800) != 0xEA {
		t.Fatalf("payload not placed at header's load address")
	}
	if got := mem.ReadWord(cpu.ResetVector); got != 0x0810 {
		t.Fatalf("reset vector=0x%04X, want 0x0810", got)
	}
}

func TestLoadForcedAddressOverridesDefault(t *testing.T) {
	mem := &memory.Memory{}
	image := []byte{0xEA}
	forced := uint16(0x9000)

	r, err := Load(mem, image, &forced)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.LoadAddr != 0x9000 {
		t.Fatalf("LoadAddr=0x%04X, want 0x9000", r.LoadAddr)
	}
	if r.ResetAddr != 0x9000 {
		t.Fatalf("ResetAddr=0x%04X, want 0x9000 (no header, so reset follows load)", r.ResetAddr)
	}
}

func TestLoadForcedAddressLeavesHeaderResetAlone(t *testing.T) {
	mem := &memory.Memory{}
	image := []byte{
		's', 'i', 'm', '6', '5',
		1, 0, 0,
		0x00, 0x08, // load addr $0800
		0x34, 0x12, // reset addr $1234
		0xEA,
	}
	forced := uint16(0x9000)

	r, err := Load(mem, image, &forced)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.LoadAddr != 0x9000 {
		t.Fatalf("LoadAddr=0x%04X, want 0x9000", r.LoadAddr)
	}
	if r.ResetAddr != 0x1234 {
		t.Fatalf("ResetAddr=0x%04X, want 0x1234 (header reset preserved)", r.ResetAddr)
	}
}

func TestLoadPreFillsHookPageWithRTS(t *testing.T) {
	mem := &memory.Memory{}
	image := []byte{0xEA}

	if _, err := Load(mem, image, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for addr := uint16(hostabi.HookPageStart); addr <= uint16(hostabi.HookPageEnd); addr++ {
		if got := mem.Read(addr); got != 0x60 {
			t.Fatalf("mem[$%04X]=$%02X, want $60 (RTS)", addr, got)
		}
	}
}

func TestLoadRejectsUnknownCPUByte(t *testing.T) {
	mem := &memory.Memory{}
	image := []byte{
		's', 'i', 'm', '6', '5',
		1, 7, 0,
		0x00, 0x08,
		0x00, 0x08,
	}
	_, err := Load(mem, image, nil)
	if err == nil {
		t.Fatalf("Load did not reject CPU byte 7")
	}
}
