// Package layout 实现楼层平面图引擎的纯计算部分：
// 布局解析、几何校验、候选房间提取、轮廓比对与标注回写。
// 本包不做任何 I/O，事务性的同步逻辑在 service/repository 层。
package layout

import (
	"encoding/json"
	"fmt"
)

// 节点类型标签（外部布局载荷中的 type / data.icon 约定）
const (
	nodeTypeBuilding = "building"
	nodeTypeBlock    = "block"
	blockIconRoom    = "room"
)

// Point 平面坐标点
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BuildingData 楼栋轮廓节点数据：相对于节点 position 的多边形顶点序列
type BuildingData struct {
	Points []Point
}

// RoomBlockData 房间块节点数据
type RoomBlockData struct {
	RoomNumber  string
	Width       float64
	Height      float64
	DimsPresent bool    // data.w 与 data.h 是否同时提供
	RoomID      int64   // 已绑定的房间ID（0 表示未绑定，由引擎回写）
	Size        float64 // 显式面积（像素尺寸缺失时的回退值，0 表示未提供）
}

// Node 布局图节点（封闭变体类型）
// Building / Room 恰有一个非 nil 时为对应变体，否则为装饰性节点。
// 原始 JSON 字段完整保留，序列化时原样回写（标注字段除外）。
type Node struct {
	ID       string
	Position Point
	Building *BuildingData
	Room     *RoomBlockData

	raw     map[string]json.RawMessage // 节点顶层原始字段
	rawData map[string]json.RawMessage // data 原始字段（可能为 nil）
}

// IsRoom 是否为房间块节点
func (n *Node) IsRoom() bool { return n.Room != nil }

// IsBuilding 是否为楼栋轮廓节点
func (n *Node) IsBuilding() bool { return n.Building != nil }

// Graph 楼层平面图：有序节点集合
type Graph struct {
	Nodes []*Node
}

// BuildingNode 返回图中第一个楼栋轮廓节点（没有则为 nil）
func (g *Graph) BuildingNode() *Node {
	for _, n := range g.Nodes {
		if n.IsBuilding() {
			return n
		}
	}
	return nil
}

// RoomNodes 返回图中全部房间块节点（保持原顺序）
func (g *Graph) RoomNodes() []*Node {
	var rooms []*Node
	for _, n := range g.Nodes {
		if n.IsRoom() {
			rooms = append(rooms, n)
		}
	}
	return rooms
}

// Parse 解码外部布局载荷（节点数组）为类型化的布局图。
// 类型判定只在此处发生一次，下游组件不再检查原始标签。
func Parse(data []byte) (*Graph, error) {
	var rawNodes []json.RawMessage
	if err := json.Unmarshal(data, &rawNodes); err != nil {
		return nil, fmt.Errorf("layout payload is not a node array: %w", err)
	}

	g := &Graph{Nodes: make([]*Node, 0, len(rawNodes))}
	for i, rn := range rawNodes {
		node, err := parseNode(rn)
		if err != nil {
			return nil, fmt.Errorf("layout node %d: %w", i, err)
		}
		g.Nodes = append(g.Nodes, node)
	}
	return g, nil
}

func parseNode(data json.RawMessage) (*Node, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("node is not an object: %w", err)
	}

	node := &Node{raw: raw}

	if err := unmarshalField(raw, "id", &node.ID); err != nil {
		return nil, err
	}
	if node.ID == "" {
		return nil, fmt.Errorf("missing node id")
	}

	var nodeType string
	if err := unmarshalField(raw, "type", &nodeType); err != nil {
		return nil, err
	}
	if nodeType == "" {
		return nil, fmt.Errorf("missing node type")
	}

	if posRaw, ok := raw["position"]; ok {
		if err := json.Unmarshal(posRaw, &node.Position); err != nil {
			return nil, fmt.Errorf("invalid position: %w", err)
		}
	} else {
		return nil, fmt.Errorf("missing node position")
	}

	if dataRaw, ok := raw["data"]; ok && string(dataRaw) != "null" {
		if err := json.Unmarshal(dataRaw, &node.rawData); err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
	}

	switch nodeType {
	case nodeTypeBuilding:
		b := &BuildingData{}
		if pts, ok := node.rawData["points"]; ok {
			if err := json.Unmarshal(pts, &b.Points); err != nil {
				return nil, fmt.Errorf("invalid building points: %w", err)
			}
		}
		node.Building = b
	case nodeTypeBlock:
		var icon string
		if err := unmarshalField(node.rawData, "icon", &icon); err != nil {
			return nil, err
		}
		if icon != blockIconRoom {
			break // 非房间块按装饰节点处理
		}
		r := &RoomBlockData{}
		if err := unmarshalField(node.rawData, "room_number", &r.RoomNumber); err != nil {
			return nil, err
		}
		wRaw, hasW := node.rawData["w"]
		hRaw, hasH := node.rawData["h"]
		if hasW {
			if err := json.Unmarshal(wRaw, &r.Width); err != nil {
				return nil, fmt.Errorf("invalid room width: %w", err)
			}
		}
		if hasH {
			if err := json.Unmarshal(hRaw, &r.Height); err != nil {
				return nil, fmt.Errorf("invalid room height: %w", err)
			}
		}
		r.DimsPresent = hasW && hasH
		if idRaw, ok := node.rawData["room_id"]; ok && string(idRaw) != "null" {
			if err := json.Unmarshal(idRaw, &r.RoomID); err != nil {
				return nil, fmt.Errorf("invalid room_id: %w", err)
			}
		}
		if szRaw, ok := node.rawData["size"]; ok && string(szRaw) != "null" {
			if err := json.Unmarshal(szRaw, &r.Size); err != nil {
				return nil, fmt.Errorf("invalid room size: %w", err)
			}
		}
		node.Room = r
	}

	return node, nil
}

// unmarshalField 读取可选字符串字段（缺失时保持零值）
func unmarshalField(raw map[string]json.RawMessage, key string, dst *string) error {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}

// Marshal 将布局图序列化回外部载荷格式。
// 非房间节点逐字节保留；房间节点保留全部原始字段，
// 仅覆盖引擎回写的 room_id 与 size（见 Annotate）。
func (g *Graph) Marshal() ([]byte, error) {
	out := make([]map[string]json.RawMessage, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		entry := make(map[string]json.RawMessage, len(n.raw))
		for k, v := range n.raw {
			entry[k] = v
		}
		if n.IsRoom() {
			data := make(map[string]json.RawMessage, len(n.rawData)+2)
			for k, v := range n.rawData {
				data[k] = v
			}
			if n.Room.RoomID > 0 {
				idRaw, err := json.Marshal(n.Room.RoomID)
				if err != nil {
					return nil, err
				}
				data["room_id"] = idRaw
			}
			if n.Room.Size > 0 {
				szRaw, err := json.Marshal(n.Room.Size)
				if err != nil {
					return nil, err
				}
				data["size"] = szRaw
			}
			dataRaw, err := json.Marshal(data)
			if err != nil {
				return nil, err
			}
			entry["data"] = dataRaw
		}
		out = append(out, entry)
	}
	return json.Marshal(out)
}
