package prompts

// NearBottomThreshold 距离底部多少像素内视为触底
const NearBottomThreshold = 100

// NearBottom 根据滚动位置判断是否应追加一页
func NearBottom(scrollTop, clientHeight, scrollHeight float64) bool {
	return scrollTop+clientHeight >= scrollHeight-NearBottomThreshold
}
