package layout

import (
	"math"
)

// DefaultPxPerMeter 默认像素/米换算比例
const DefaultPxPerMeter = 80

// RoomCandidate 从房间块节点派生的候选房间记录。
// NodeID 回指来源节点，供标注器在同步完成后写回持久化ID。
type RoomCandidate struct {
	NodeID     string
	RoomNumber string
	RoomID     int64 // 节点上已绑定的房间ID（0 表示未绑定）
	FloorArea  float64
	Rect       Rect
	HasRect    bool
}

// ExtractCandidates 遍历布局图，为每个携带房间号的房间块节点派生候选记录。
// 面积优先按像素尺寸换算（(w/px) * (h/px)，保留2位小数）；
// 像素尺寸缺失或非正时回退到显式提供的 size。
// 没有房间号的节点跳过，不报错。
func ExtractCandidates(g *Graph, pxPerMeter float64) []RoomCandidate {
	if pxPerMeter <= 0 {
		pxPerMeter = DefaultPxPerMeter
	}

	var candidates []RoomCandidate
	for _, n := range g.RoomNodes() {
		if n.Room.RoomNumber == "" {
			continue
		}
		c := RoomCandidate{
			NodeID:     n.ID,
			RoomNumber: n.Room.RoomNumber,
			RoomID:     n.Room.RoomID,
		}
		if rect, ok := roomRect(n); ok && rect.W > 0 && rect.H > 0 {
			c.Rect = rect
			c.HasRect = true
			c.FloorArea = round2((rect.W / pxPerMeter) * (rect.H / pxPerMeter))
		} else {
			c.FloorArea = round2(n.Room.Size)
		}
		candidates = append(candidates, c)
	}
	return candidates
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
