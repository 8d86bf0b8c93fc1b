package input

import "testing"

func TestComputeMappingMatchedRatio(t *testing.T) {
	m := ComputeMapping(1920, 1080, 960, 540, 0, 0)
	if m.OffsetX != 0 || m.OffsetY != 0 {
		t.Errorf("Expected no offsets for matched ratio, got (%v,%v)", m.OffsetX, m.OffsetY)
	}
	if m.ScaleX != 2 || m.ScaleY != 2 {
		t.Errorf("Expected scale 2, got (%v,%v)", m.ScaleX, m.ScaleY)
	}
}

func TestComputeMappingPillarboxed(t *testing.T) {
	// wide element, 16:9 frame: frame is centered horizontally
	m := ComputeMapping(1920, 1080, 2000, 540, 0, 0)
	if m.OffsetX <= 0 {
		t.Errorf("Expected positive X offset, got %v", m.OffsetX)
	}
	if m.OffsetY != 0 {
		t.Errorf("Expected no Y offset, got %v", m.OffsetY)
	}
}

func TestComputeMappingLetterboxed(t *testing.T) {
	m := ComputeMapping(1920, 1080, 960, 800, 0, 0)
	if m.OffsetY <= 0 {
		t.Errorf("Expected positive Y offset, got %v", m.OffsetY)
	}
	if m.OffsetX != 0 {
		t.Errorf("Expected no X offset, got %v", m.OffsetX)
	}
}

func TestClientToFrameClampRight(t *testing.T) {
	m := ComputeMapping(1920, 1080, 1920, 1080, 0, 0)

	// anything at or past width-1 clamps to exactly the frame width
	x, _ := m.ClientToFrame(1919, 100)
	if x != 1920 {
		t.Errorf("Expected clamp to 1920, got %d", x)
	}
	x, _ = m.ClientToFrame(5000, 100)
	if x != 1920 {
		t.Errorf("Expected clamp to 1920, got %d", x)
	}
}

func TestClientToFrameClampNegative(t *testing.T) {
	m := ComputeMapping(1920, 1080, 1920, 1080, 0, 0)
	x, y := m.ClientToFrame(-50, -10)
	if x != 0 || y != 0 {
		t.Errorf("Expected clamp to origin, got (%d,%d)", x, y)
	}
}

func TestClientToFrameScroll(t *testing.T) {
	m := ComputeMapping(1920, 1080, 1920, 1080, 100, 0)
	x, _ := m.ClientToFrame(500, 100)
	if x != 600 {
		t.Errorf("Expected scroll offset applied, got %d", x)
	}
}

func TestComputeMappingDegenerate(t *testing.T) {
	m := ComputeMapping(0, 0, 1920, 1080, 0, 0)
	if m.ScaleX != 1 || m.ScaleY != 1 {
		t.Errorf("Expected identity scale for empty frame, got (%v,%v)", m.ScaleX, m.ScaleY)
	}
}
