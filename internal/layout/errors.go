package layout

import (
	"fmt"
	"strings"
)

// 几何/结构校验失败原因
const (
	ReasonMissingOutline = "missing_outline"
	ReasonBadDimensions  = "bad_dimensions"
	ReasonOutsideOutline = "outside_outline"
	ReasonOverlap        = "overlap"
)

// ValidationError 结构性校验错误：在任何持久化发生之前返回，
// 携带冲突房间号，便于管理端定位并修正布局
type ValidationError struct {
	Reason string
	Rooms  []string // 涉及的房间号（无房间号时为节点ID）
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissingOutline:
		return "missing building outline"
	case ReasonBadDimensions:
		return fmt.Sprintf("room %s has non-positive dimensions", strings.Join(e.Rooms, ", "))
	case ReasonOutsideOutline:
		return fmt.Sprintf("room %s lies outside the building outline", strings.Join(e.Rooms, ", "))
	case ReasonOverlap:
		return fmt.Sprintf("rooms %s overlap", strings.Join(e.Rooms, " and "))
	}
	return "invalid layout"
}
