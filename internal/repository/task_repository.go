package repository

import (
	"errors"
	"time"

	"github.com/anishthebud/look-at-me-2/internal/model"
	"gorm.io/gorm"
)

// ErrStaleRecord 乐观锁冲突,记录在读取后已被其他写入者修改
var ErrStaleRecord = errors.New("task record is stale: concurrent update detected")

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Create(task *model.TaskModel) error
	// Save 带乐观并发控制的保存:仅当数据库中的 updated_at
	// 仍等于 prevUpdatedAt 时才写入,否则返回 ErrStaleRecord
	Save(task *model.TaskModel, prevUpdatedAt time.Time) error
	Delete(id string) error
	FindByID(id string) (*model.TaskModel, error)
	FindAll() ([]*model.TaskModel, error)
	CountByState(state model.TaskState) (int64, error)
	Count() (int64, error)
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 新建任务
func (r *taskRepository) Create(task *model.TaskModel) error {
	return r.db.Create(task).Error
}

// Save 保存任务,updated_at 比对实现 compare-and-swap
func (r *taskRepository) Save(task *model.TaskModel, prevUpdatedAt time.Time) error {
	res := r.db.Model(&model.TaskModel{}).
		Where("id = ? AND updated_at = ?", task.ID, prevUpdatedAt).
		Select("*").Omit("id", "created_at").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	return nil
}

// Delete 删除任务
func (r *taskRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.TaskModel{}).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(id string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindAll 查找所有任务,按创建时间升序
func (r *taskRepository) FindAll() ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	err := r.db.Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

// CountByState 统计指定状态的任务数
func (r *taskRepository) CountByState(state model.TaskState) (int64, error) {
	var count int64
	err := r.db.Model(&model.TaskModel{}).Where("state = ?", string(state)).Count(&count).Error
	return count, err
}

// Count 统计任务总数
func (r *taskRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.TaskModel{}).Count(&count).Error
	return count, err
}
