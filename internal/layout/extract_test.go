package layout

import (
	"testing"
)

func TestExtractCandidatesPixelArea(t *testing.T) {
	// 80px/m 下 240x240 像素 = 3m x 3m = 9m²
	g := mustParse(t, roomNode("r1", "101", 0, 0, 240, 240))
	got := ExtractCandidates(g, DefaultPxPerMeter)
	if len(got) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.NodeID != "r1" || c.RoomNumber != "101" {
		t.Errorf("candidate identity wrong: %+v", c)
	}
	if c.FloorArea != 9 {
		t.Errorf("floor area = %v, want 9", c.FloorArea)
	}
	if !c.HasRect || c.Rect.W != 240 || c.Rect.H != 240 {
		t.Errorf("candidate rect wrong: %+v", c)
	}
}

func TestExtractCandidatesRounding(t *testing.T) {
	// 250x250 像素 = 3.125m x 3.125m = 9.765625m² → 9.77
	g := mustParse(t, roomNode("r1", "101", 0, 0, 250, 250))
	got := ExtractCandidates(g, DefaultPxPerMeter)
	if got[0].FloorArea != 9.77 {
		t.Errorf("floor area = %v, want 9.77", got[0].FloorArea)
	}
}

func TestExtractCandidatesSizeFallback(t *testing.T) {
	payload := `[{"id":"r1","type":"block","position":{"x":0,"y":0},"data":{"icon":"room","room_number":"101","size":12.338}}]`
	g, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := ExtractCandidates(g, DefaultPxPerMeter)
	if len(got) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(got))
	}
	if got[0].FloorArea != 12.34 {
		t.Errorf("fallback area = %v, want 12.34", got[0].FloorArea)
	}
	if got[0].HasRect {
		t.Error("size-only candidate must not carry a rect")
	}
}

func TestExtractCandidatesPixelsBeatSize(t *testing.T) {
	// 像素尺寸与显式面积同时存在时像素换算优先
	payload := `[{"id":"r1","type":"block","position":{"x":0,"y":0},"data":{"icon":"room","room_number":"101","w":240,"h":240,"size":99}}]`
	g, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := ExtractCandidates(g, DefaultPxPerMeter)
	if got[0].FloorArea != 9 {
		t.Errorf("pixel area must win, got %v", got[0].FloorArea)
	}
}

func TestExtractCandidatesSkipsUnnumbered(t *testing.T) {
	g := mustParse(t,
		roomNode("r1", "", 0, 0, 240, 240),
		roomNode("r2", "102", 300, 0, 240, 240),
	)
	got := ExtractCandidates(g, DefaultPxPerMeter)
	if len(got) != 1 || got[0].RoomNumber != "102" {
		t.Fatalf("unnumbered block must be skipped, got %+v", got)
	}
}

func TestExtractCandidatesCarriesBoundID(t *testing.T) {
	payload := `[{"id":"r1","type":"block","position":{"x":0,"y":0},"data":{"icon":"room","room_number":"101","w":240,"h":240,"room_id":55}}]`
	g, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := ExtractCandidates(g, DefaultPxPerMeter)
	if got[0].RoomID != 55 {
		t.Errorf("bound room id = %d, want 55", got[0].RoomID)
	}
}

func TestExtractCandidatesDefaultScale(t *testing.T) {
	g := mustParse(t, roomNode("r1", "101", 0, 0, 240, 240))
	// 非法比例回退到默认值
	got := ExtractCandidates(g, 0)
	if got[0].FloorArea != 9 {
		t.Errorf("zero scale must fall back to default, got %v", got[0].FloorArea)
	}
}
