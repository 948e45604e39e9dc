package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anishthebud/look-at-me-2/internal/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoExtension 没有浏览器扩展在线
var ErrNoExtension = errors.New("no browser extension connected")

// command 下发给扩展的命令
type command struct {
	ID     string          `json:"id"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// reply 扩展的应答
type reply struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Bridge 通过 WebSocket 桥接浏览器扩展的编排实现
// 命令与应答按 uuid 关联,超时即放弃,不会阻塞状态转换
type Bridge struct {
	hub     *websocket.Hub
	logger  *logrus.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan reply
}

// NewBridge 创建桥接编排器并启动应答分发
func NewBridge(hub *websocket.Hub, timeout time.Duration, logger *logrus.Logger) *Bridge {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	b := &Bridge{
		hub:     hub,
		logger:  logger,
		timeout: timeout,
		pending: make(map[string]chan reply),
	}
	go b.dispatch()
	return b
}

// dispatch 持续消费扩展的上行消息,按命令 ID 派发应答
func (b *Bridge) dispatch() {
	for message := range b.hub.Inbound {
		var r reply
		if err := json.Unmarshal(message, &r); err != nil {
			b.logger.WithError(err).Warn("discarding malformed bridge reply")
			continue
		}
		b.mu.Lock()
		ch, ok := b.pending[r.ID]
		if ok {
			delete(b.pending, r.ID)
		}
		b.mu.Unlock()
		if ok {
			ch <- r
		}
	}
}

// call 下发一条命令并等待应答
func (b *Bridge) call(ctx context.Context, action string, params any, out any) error {
	if !b.hub.HasClients() {
		return ErrNoExtension
	}

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal %s params: %w", action, err)
		}
		raw = data
	}

	cmd := command{ID: uuid.New().String(), Action: action, Params: raw}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal %s command: %w", action, err)
	}

	ch := make(chan reply, 1)
	b.mu.Lock()
	b.pending[cmd.ID] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, cmd.ID)
		b.mu.Unlock()
	}()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case b.hub.Send <- payload:
	case <-timer.C:
		return fmt.Errorf("%s: send timed out", action)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case r := <-ch:
		if !r.OK {
			return fmt.Errorf("%s failed in browser: %s", action, r.Error)
		}
		if out != nil && len(r.Result) > 0 {
			if err := json.Unmarshal(r.Result, out); err != nil {
				return fmt.Errorf("failed to unmarshal %s result: %w", action, err)
			}
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%s: timed out waiting for browser reply", action)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenTabs 打开一组网址
func (b *Bridge) OpenTabs(ctx context.Context, urls []string) ([]string, error) {
	var result struct {
		TabIDs []string `json:"tab_ids"`
	}
	params := map[string]any{"urls": urls}
	if err := b.call(ctx, "open_tabs", params, &result); err != nil {
		return nil, err
	}
	return result.TabIDs, nil
}

// GroupTabs 把标签归入一个组
func (b *Bridge) GroupTabs(ctx context.Context, tabIDs []string, title string, color string) (string, error) {
	var result struct {
		GroupID string `json:"group_id"`
	}
	params := map[string]any{"tab_ids": tabIDs, "title": title, "color": color}
	if err := b.call(ctx, "group_tabs", params, &result); err != nil {
		return "", err
	}
	return result.GroupID, nil
}

// FindGroupByTitle 按标题查找标签组
func (b *Bridge) FindGroupByTitle(ctx context.Context, title string) (*Group, error) {
	var result struct {
		Group *Group `json:"group"`
	}
	params := map[string]any{"title": title}
	if err := b.call(ctx, "find_group", params, &result); err != nil {
		return nil, err
	}
	return result.Group, nil
}

// FocusGroup 聚焦标签组
func (b *Bridge) FocusGroup(ctx context.Context, groupID string) (bool, error) {
	var result struct {
		Focused bool `json:"focused"`
	}
	params := map[string]any{"group_id": groupID}
	if err := b.call(ctx, "focus_group", params, &result); err != nil {
		return false, err
	}
	return result.Focused, nil
}

// CloseGroup 关闭标签组
func (b *Bridge) CloseGroup(ctx context.Context, groupID string) (bool, error) {
	var result struct {
		Closed bool `json:"closed"`
	}
	params := map[string]any{"group_id": groupID}
	if err := b.call(ctx, "close_group", params, &result); err != nil {
		return false, err
	}
	return result.Closed, nil
}
