package layout

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRejectsNonArray(t *testing.T) {
	if _, err := Parse([]byte(`{"nodes":[]}`)); err == nil {
		t.Fatal("non-array payload must be rejected")
	}
}

func TestParseRejectsBadNodes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantMsg string
	}{
		{"missing id", `[{"type":"block","position":{"x":0,"y":0}}]`, "missing node id"},
		{"missing type", `[{"id":"n1","position":{"x":0,"y":0}}]`, "missing node type"},
		{"missing position", `[{"id":"n1","type":"block"}]`, "missing node position"},
		{"bad position", `[{"id":"n1","type":"block","position":"nope"}]`, "invalid position"},
		{"bad room_id", `[{"id":"n1","type":"block","position":{"x":0,"y":0},"data":{"icon":"room","room_id":"abc"}}]`, "invalid room_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload))
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q must mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParseClassifiesNodes(t *testing.T) {
	payload := `[
		{"id":"b1","type":"building","position":{"x":10,"y":20},"data":{"points":[{"x":0,"y":0},{"x":100,"y":0},{"x":100,"y":100},{"x":0,"y":100}]}},
		{"id":"r1","type":"block","position":{"x":30,"y":40},"data":{"icon":"room","room_number":"101","w":240,"h":160,"room_id":7,"size":6.0}},
		{"id":"d1","type":"block","position":{"x":5,"y":6},"data":{"icon":"door"}},
		{"id":"w1","type":"block","position":{"x":7,"y":8}}
	]`
	g, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(g.Nodes) != 4 {
		t.Fatalf("want 4 nodes, got %d", len(g.Nodes))
	}

	b := g.BuildingNode()
	if b == nil || b.ID != "b1" {
		t.Fatal("building node not found")
	}
	if len(b.Building.Points) != 4 || b.Position.X != 10 || b.Position.Y != 20 {
		t.Errorf("building node decoded wrong: %+v", b)
	}

	rooms := g.RoomNodes()
	if len(rooms) != 1 {
		t.Fatalf("want 1 room node, got %d", len(rooms))
	}
	r := rooms[0].Room
	if r.RoomNumber != "101" || r.Width != 240 || r.Height != 160 || !r.DimsPresent {
		t.Errorf("room block decoded wrong: %+v", r)
	}
	if r.RoomID != 7 || r.Size != 6.0 {
		t.Errorf("room bindings decoded wrong: %+v", r)
	}

	// 门窗等装饰节点既不是楼栋轮廓也不是房间块
	if g.Nodes[2].IsRoom() || g.Nodes[2].IsBuilding() {
		t.Error("door block must be decorative")
	}
	if g.Nodes[3].IsRoom() || g.Nodes[3].IsBuilding() {
		t.Error("bare block must be decorative")
	}
}

func TestParseDimsPresentRequiresBoth(t *testing.T) {
	payload := `[{"id":"r1","type":"block","position":{"x":0,"y":0},"data":{"icon":"room","room_number":"101","w":240}}]`
	g, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if g.RoomNodes()[0].Room.DimsPresent {
		t.Error("w without h must not mark dims present")
	}
}

func TestMarshalPreservesUnknownFields(t *testing.T) {
	payload := `[
		{"id":"d1","type":"block","position":{"x":1,"y":2},"data":{"icon":"door","style":{"color":"red"}},"zIndex":3},
		{"id":"r1","type":"block","position":{"x":0,"y":0},"data":{"icon":"room","room_number":"101","w":240,"h":240,"label":"corner suite"}}
	]`
	g, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out, err := g.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var nodes []map[string]json.RawMessage
	if err := json.Unmarshal(out, &nodes); err != nil {
		t.Fatalf("marshal output not a node array: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("want 2 nodes, got %d", len(nodes))
	}
	if string(nodes[0]["zIndex"]) != "3" {
		t.Errorf("top-level extra field lost: %s", nodes[0]["zIndex"])
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(nodes[1]["data"], &data); err != nil {
		t.Fatalf("room data not an object: %v", err)
	}
	if string(data["label"]) != `"corner suite"` {
		t.Errorf("room data extra field lost: %s", data["label"])
	}
	if _, ok := data["room_id"]; ok {
		t.Error("unannotated room must not gain room_id")
	}
}

func TestAnnotateWritesBackIDAndArea(t *testing.T) {
	payload := `[
		{"id":"r1","type":"block","position":{"x":0,"y":0},"data":{"icon":"room","room_number":"101","w":240,"h":240}},
		{"id":"r2","type":"block","position":{"x":300,"y":0},"data":{"icon":"room","room_number":"102","w":160,"h":160}}
	]`
	g, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	Annotate(g, map[string]Annotation{
		"r1": {RoomID: 42, FloorArea: 9},
	})

	out, err := g.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var nodes []struct {
		ID   string `json:"id"`
		Data struct {
			RoomID int64   `json:"room_id"`
			Size   float64 `json:"size"`
		} `json:"data"`
	}
	if err := json.Unmarshal(out, &nodes); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if nodes[0].Data.RoomID != 42 || nodes[0].Data.Size != 9 {
		t.Errorf("annotated node wrong: %+v", nodes[0].Data)
	}
	if nodes[1].Data.RoomID != 0 {
		t.Errorf("unannotated node must stay unbound: %+v", nodes[1].Data)
	}
}
