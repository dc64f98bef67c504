package appk

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestEncodeHeaderLayout(t *testing.T) {
	h := &Header{
		Name:        "hello",
		Version:     "1.2.3",
		Author:      "Kraken Team",
		Size:        1024,
		EntryOffset: 16,
		Checksum:    0xDEADBEEF,
	}

	raw := EncodeHeader(h)

	if len(raw) != HeaderSize {
		t.Fatalf("EncodeHeader() length = %d, want %d", len(raw), HeaderSize)
	}

	if got := binary.LittleEndian.Uint32(raw[0:4]); got != Magic {
		t.Errorf("magic = 0x%08X, want 0x%08X", got, Magic)
	}
	if !bytes.Equal(raw[0:4], []byte{0x4B, 0x50, 0x50, 0x41}) {
		t.Errorf("magic bytes = % X, want 4B 50 50 41", raw[0:4])
	}
	if got := string(raw[4:9]); got != "hello" {
		t.Errorf("name = %q, want %q", got, "hello")
	}
	if raw[9] != 0 {
		t.Errorf("name terminator = 0x%02X, want 0x00", raw[9])
	}
	if got := string(raw[36:41]); got != "1.2.3" {
		t.Errorf("version = %q, want %q", got, "1.2.3")
	}
	if got := string(raw[52:63]); got != "Kraken Team" {
		t.Errorf("author = %q, want %q", got, "Kraken Team")
	}
	if got := binary.LittleEndian.Uint32(raw[84:88]); got != 1024 {
		t.Errorf("size = %d, want 1024", got)
	}
	if got := binary.LittleEndian.Uint32(raw[88:92]); got != 16 {
		t.Errorf("entry offset = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(raw[92:96]); got != 0xDEADBEEF {
		t.Errorf("checksum = 0x%08X, want 0xDEADBEEF", got)
	}
	for i := OffsetReserved; i < HeaderSize; i++ {
		if raw[i] != 0 {
			t.Fatalf("reserved byte %d = 0x%02X, want 0x00", i, raw[i])
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header Header
	}{
		{
			name:   "simple",
			header: Header{Name: "hello", Version: "1.0.0", Author: "<unknown>", Size: 1024, Checksum: 0x12345678},
		},
		{
			name:   "empty strings",
			header: Header{Size: 1},
		},
		{
			name: "exact field limits",
			header: Header{
				Name:    strings.Repeat("n", NameSize-1),
				Version: strings.Repeat("v", VersionSize-1),
				Author:  strings.Repeat("a", AuthorSize-1),
				Size:    0xFFFFFFFF,
			},
		},
		{
			name: "oversized strings are truncated",
			header: Header{
				Name:    strings.Repeat("N", 100),
				Version: "1.0.0-beta.1+build.20240101",
				Author:  strings.Repeat("A", 64),
				Size:    8,
			},
		},
		{
			name:   "embedded NUL",
			header: Header{Name: "abc\x00def", Size: 4},
		},
		{
			name:   "entry offset and checksum",
			header: Header{Name: "echo", Size: 4096, EntryOffset: 4095, Checksum: 0xFFFFFFFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHeader(EncodeHeader(&tt.header))
			if err != nil {
				t.Fatalf("DecodeHeader() unexpected error: %v", err)
			}

			want := tt.header.Normalize()
			if *got != want {
				t.Errorf("DecodeHeader(EncodeHeader(h)) = %+v, want %+v", *got, want)
			}
		})
	}
}

func TestHeaderTruncationLengths(t *testing.T) {
	h := Header{
		Name:    strings.Repeat("x", 40),
		Version: strings.Repeat("y", 40),
		Author:  strings.Repeat("z", 40),
	}

	got, err := DecodeHeader(EncodeHeader(&h))
	if err != nil {
		t.Fatalf("DecodeHeader() unexpected error: %v", err)
	}

	if len(got.Name) != 31 {
		t.Errorf("len(Name) = %d, want 31", len(got.Name))
	}
	if len(got.Version) != 15 {
		t.Errorf("len(Version) = %d, want 15", len(got.Version))
	}
	if len(got.Author) != 31 {
		t.Errorf("len(Author) = %d, want 31", len(got.Author))
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	valid := EncodeHeader(&Header{Name: "hello", Size: 4})

	badMagic := append([]byte(nil), valid...)
	badMagic[0] ^= 0xFF

	tests := []struct {
		name   string
		data   []byte
		errMsg string
	}{
		{name: "empty", data: nil, errMsg: "truncated"},
		{name: "one byte short", data: valid[:HeaderSize-1], errMsg: "truncated"},
		{name: "corrupted magic", data: badMagic, errMsg: "magic"},
		{name: "zero header", data: make([]byte, HeaderSize), errMsg: "magic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeader(tt.data)
			if err == nil {
				t.Fatal("DecodeHeader() expected error, got nil")
			}
			if !IsFormatError(err) {
				t.Errorf("DecodeHeader() error = %T, want *FormatError", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestDecodeHeaderEveryMagicByte(t *testing.T) {
	valid := EncodeHeader(&Header{Name: "hello", Size: 4})

	for i := 0; i < 4; i++ {
		data := append([]byte(nil), valid...)
		data[i]++
		if _, err := DecodeHeader(data); !IsFormatError(err) {
			t.Errorf("corrupting magic byte %d: error = %v, want FormatError", i, err)
		}
	}
}

func TestHeaderValidate(t *testing.T) {
	tests := []struct {
		name    string
		header  Header
		wantErr bool
		errMsg  string
	}{
		{name: "valid", header: Header{Name: "hello", Size: 10, EntryOffset: 9}},
		{name: "empty name", header: Header{Size: 10}, wantErr: true, errMsg: "name"},
		{name: "entry equals size", header: Header{Size: 10, EntryOffset: 10}, wantErr: true, errMsg: "entry offset"},
		{name: "entry beyond size", header: Header{Size: 10, EntryOffset: 11}, wantErr: true, errMsg: "entry offset"},
		{name: "empty blob", header: Header{Size: 0}, wantErr: true, errMsg: "empty"},
		{name: "unknown algorithm", header: Header{Size: 10, ChecksumAlgorithm: 7}, wantErr: true, errMsg: "0x07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() expected error, got nil")
				}
				if !IsFormatError(err) {
					t.Errorf("Validate() error = %T, want *FormatError", err)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}
