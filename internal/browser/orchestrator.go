// Package browser 浏览器标签编排
// 所有操作都是尽力而为:浏览器侧不可用或失败时返回空结果,
// 调用方(任务生命周期)只记录日志,状态转换不受影响
package browser

import "context"

// Group 标签组信息
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Orchestrator 标签编排能力接口
// 真实实现通过 WebSocket 桥接到浏览器扩展,测试使用 Noop 实现
type Orchestrator interface {
	// OpenTabs 打开一组网址,返回标签 ID 列表
	OpenTabs(ctx context.Context, urls []string) ([]string, error)
	// GroupTabs 把标签归入一个组,返回组 ID
	GroupTabs(ctx context.Context, tabIDs []string, title string, color string) (string, error)
	// FindGroupByTitle 按标题查找标签组,找不到时返回 nil
	FindGroupByTitle(ctx context.Context, title string) (*Group, error)
	// FocusGroup 聚焦标签组
	FocusGroup(ctx context.Context, groupID string) (bool, error)
	// CloseGroup 关闭标签组
	CloseGroup(ctx context.Context, groupID string) (bool, error)
}

// Noop 空实现,无浏览器可用时使用
type Noop struct{}

// NewNoop 创建空实现
func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) OpenTabs(ctx context.Context, urls []string) ([]string, error) {
	return nil, nil
}

func (*Noop) GroupTabs(ctx context.Context, tabIDs []string, title string, color string) (string, error) {
	return "", nil
}

func (*Noop) FindGroupByTitle(ctx context.Context, title string) (*Group, error) {
	return nil, nil
}

func (*Noop) FocusGroup(ctx context.Context, groupID string) (bool, error) {
	return false, nil
}

func (*Noop) CloseGroup(ctx context.Context, groupID string) (bool, error) {
	return false, nil
}
