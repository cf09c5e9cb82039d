package metadata

import "testing"

func TestTextureFormatClasses(t *testing.T) {
	depth := []TextureFormat{TextureFormatDepth16, TextureFormatDepth24, TextureFormatDepth32, TextureFormatDepth24Stencil8, TextureFormatDepth32Stencil8}
	for _, f := range depth {
		if !f.IsDepth() {
			t.Fatalf("%v.IsDepth: want true", f)
		}
	}
	for _, f := range []TextureFormat{TextureFormatR8G8B8A8, TextureFormatR8, TextureFormatR8G8} {
		if f.IsDepth() {
			t.Fatalf("%v.IsDepth: want false", f)
		}
	}
	if !TextureFormatDepth24Stencil8.HasStencil() || TextureFormatDepth24.HasStencil() {
		t.Fatal("HasStencil mismatch")
	}
	if TextureFormatColor != TextureFormatR8G8B8A8 {
		t.Fatal("TextureFormatColor should alias R8G8B8A8")
	}
}

func TestVertexTypeSizes(t *testing.T) {
	cases := map[VertexType]uint32{
		VertexTypeFloat: 4, VertexTypeFloat2: 8, VertexTypeFloat3: 12, VertexTypeFloat4: 16,
		VertexTypeByte4: 4, VertexTypeUByte4: 4, VertexTypeShort2: 4, VertexTypeUShort2: 4,
		VertexTypeShort4: 8, VertexTypeUShort4: 8,
	}
	for vt, want := range cases {
		if have := vt.SizeInBytes(); have != want {
			t.Fatalf("SizeInBytes(%d):\nhave %d\nwant %d", vt, have, want)
		}
	}
	if f := NewVertexElementFormat(VertexTypeFloat3, true); f.Normalized {
		t.Fatal("float formats are never normalised")
	}
	if f := NewVertexElementFormat(VertexTypeUByte4, true); !f.Normalized {
		t.Fatal("UByte4 normalisation lost")
	}
}

func TestParseColourHex(t *testing.T) {
	c, err := ParseColourHex("#FF8000")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := c.RGBA8(), [4]uint8{255, 128, 0, 255}; have != want {
		t.Fatalf("RGBA8:\nhave %v\nwant %v", have, want)
	}
	c, err = ParseColourHex("80FFFFFF")
	if err != nil {
		t.Fatal(err)
	}
	if have := c.RGBA8()[3]; have != 128 {
		t.Fatalf("alpha:\nhave %d\nwant 128", have)
	}
	if _, err := ParseColourHex("#123"); err == nil {
		t.Fatal("ParseColourHex(#123): expected error")
	}
}

func TestGetAligned(t *testing.T) {
	for _, tc := range []struct{ operand, granularity, want uint64 }{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{1024, 256, 1024},
		{1025, 64, 1088},
		{1024, 1, 1024},
	} {
		if have := GetAligned(tc.operand, tc.granularity); have != tc.want {
			t.Fatalf("GetAligned(%d, %d):\nhave %d\nwant %d", tc.operand, tc.granularity, have, tc.want)
		}
	}
}
